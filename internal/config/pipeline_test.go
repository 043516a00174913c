package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipelineHolderServesDefaultsWithoutConfigFile(t *testing.T) {
	holder, err := NewPipelineConfigHolder()
	require.NoError(t, err)

	cfg := holder.Get()
	require.Equal(t, DefaultPipelineConfig(), cfg)
	require.Equal(t, 5, cfg.WebhookMaxAttempts)
	require.Equal(t, 3, cfg.WebhookClientErrorAttempts)
	require.Equal(t, 30*time.Second, cfg.WebhookTimeout)
	require.Equal(t, []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		60 * time.Minute,
	}, cfg.WebhookBackoff)
}

func TestValidatePipelineConfig(t *testing.T) {
	base := DefaultPipelineConfig()

	tests := []struct {
		name    string
		mutate  func(*PipelineConfig)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*PipelineConfig) {},
		},
		{
			name:    "zero billing attempts",
			mutate:  func(c *PipelineConfig) { c.BillingCheckMaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero webhook attempts",
			mutate:  func(c *PipelineConfig) { c.WebhookMaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "client error threshold above attempt budget",
			mutate:  func(c *PipelineConfig) { c.WebhookClientErrorAttempts = c.WebhookMaxAttempts + 1 },
			wantErr: true,
		},
		{
			name:    "negative webhook timeout",
			mutate:  func(c *PipelineConfig) { c.WebhookTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "empty backoff schedule",
			mutate:  func(c *PipelineConfig) { c.WebhookBackoff = nil },
			wantErr: true,
		},
		{
			name:    "non-positive backoff delay",
			mutate:  func(c *PipelineConfig) { c.WebhookBackoff = []time.Duration{time.Minute, 0} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.WebhookBackoff = append([]time.Duration(nil), base.WebhookBackoff...)
			tt.mutate(&cfg)

			err := validatePipelineConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
