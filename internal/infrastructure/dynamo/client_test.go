package dynamo

import (
	"context"
	"testing"

	"github.com/go-patient-monitor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_LocalEndpoint(t *testing.T) {
	cfg := &config.Config{
		AWSRegion:      "eu-west-1",
		AWSEndpointURL: "http://localhost:4566",
		AWSAccessKeyID: "test",
		AWSSecretKey:   "test",
	}

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *opts.BaseEndpoint)
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	cfg := &config.Config{AWSRegion: "us-east-1", AWSAccessKeyID: "test", AWSSecretKey: "test"}

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, client.Options().BaseEndpoint)
}

func TestNewClient_RequiresRegion(t *testing.T) {
	_, err := NewClient(context.Background(), &config.Config{})
	assert.ErrorContains(t, err, "AWS region is not configured")
}
