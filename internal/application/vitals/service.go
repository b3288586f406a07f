// Package vitals serves the patient's simulated vital signs.
package vitals

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/go-patient-monitor/internal/domain"
)

type Service interface {
	// Get refreshes the readings and returns them.
	Get(ctx context.Context) (*domain.Vitals, error)
	UpdateLocation(ctx context.Context, location string) (*domain.Vitals, error)
}

type service struct {
	mu      sync.Mutex
	current domain.Vitals
	now     func() time.Time
	intN    func(n int) int
}

func NewService(location string) Service {
	s := &service{now: time.Now, intN: rand.IntN}
	s.current = domain.Vitals{
		HeartRate:  75,
		Steps:      2430,
		Location:   location,
		LastUpdate: s.now().UTC(),
	}
	return s
}

func (s *service) Get(_ context.Context) (*domain.Vitals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.HeartRate = 65 + s.intN(20)
	s.current.Steps += s.intN(100)
	s.current.LastUpdate = s.now().UTC()
	v := s.current
	return &v, nil
}

func (s *service) UpdateLocation(_ context.Context, location string) (*domain.Vitals, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("location is required: %w", domain.ErrBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Location = location
	s.current.LastUpdate = s.now().UTC()
	v := s.current
	return &v, nil
}
