package http

import (
	"log/slog"

	"github.com/go-patient-monitor/internal/application/alert"
	"github.com/go-patient-monitor/internal/application/auth"
	"github.com/go-patient-monitor/internal/application/device"
	"github.com/go-patient-monitor/internal/application/generator"
	"github.com/go-patient-monitor/internal/application/vitals"
	"github.com/go-patient-monitor/internal/transport/http/handler"
	appmiddleware "github.com/go-patient-monitor/internal/transport/http/middleware"
)

// Deps holds everything the router serves.
type Deps struct {
	Logger *slog.Logger

	Alerts    *alert.Store
	Unread    *alert.UnreadCounter
	Generator *generator.Generator
	Devices   device.Service
	Vitals    vitals.Service
	Auth      auth.Service

	// Readings is optional; its routes are not mounted when nil.
	Readings handler.ReadingsSource

	Verifier appmiddleware.TokenVerifier
	Hub      *Hub
}
