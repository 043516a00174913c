package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PipelineConfig tunes the billing-check and webhook-delivery pipeline.
type PipelineConfig struct {
	BillingCheckMaxAttempts int           `mapstructure:"billingCheckMaxAttempts"`
	BillingCheckTimeout     time.Duration `mapstructure:"billingCheckTimeout"`

	WebhookMaxAttempts         int             `mapstructure:"webhookMaxAttempts"`
	WebhookClientErrorAttempts int             `mapstructure:"webhookClientErrorAttempts"`
	WebhookTimeout             time.Duration   `mapstructure:"webhookTimeout"`
	WebhookBackoff             []time.Duration `mapstructure:"webhookBackoff"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BillingCheckMaxAttempts: 3,
		BillingCheckTimeout:     120 * time.Second,

		WebhookMaxAttempts:         5,
		WebhookClientErrorAttempts: 3,
		WebhookTimeout:             30 * time.Second,
		WebhookBackoff: []time.Duration{
			1 * time.Minute,
			5 * time.Minute,
			15 * time.Minute,
			60 * time.Minute,
		},
	}
}

// PipelineConfigHolder hot-reloads pipeline tuning from pipeline.yml.
type PipelineConfigHolder struct {
	current atomic.Value // holds PipelineConfig
}

func NewPipelineConfigHolder() (*PipelineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pipeline")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/subtrack/config")
	v.AddConfigPath("/etc/subtrack")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SUBTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPipelineConfig()
	v.SetDefault("pipeline.billingCheckMaxAttempts", defaults.BillingCheckMaxAttempts)
	v.SetDefault("pipeline.billingCheckTimeout", defaults.BillingCheckTimeout)
	v.SetDefault("pipeline.webhookMaxAttempts", defaults.WebhookMaxAttempts)
	v.SetDefault("pipeline.webhookClientErrorAttempts", defaults.WebhookClientErrorAttempts)
	v.SetDefault("pipeline.webhookTimeout", defaults.WebhookTimeout)
	v.SetDefault("pipeline.webhookBackoff", defaults.WebhookBackoff)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PipelineConfig
	if err := v.UnmarshalKey("pipeline", &cfg); err != nil {
		return nil, err
	}
	if err := validatePipelineConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PipelineConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PipelineConfig
		if err := v.UnmarshalKey("pipeline", &updated); err != nil {
			log.Printf("[pipeline-config] reload failed: %v", err)
			return
		}
		if err := validatePipelineConfig(updated); err != nil {
			log.Printf("[pipeline-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pipeline-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PipelineConfigHolder) Get() PipelineConfig {
	return h.current.Load().(PipelineConfig)
}

func validatePipelineConfig(cfg PipelineConfig) error {
	if cfg.BillingCheckMaxAttempts <= 0 {
		return errors.New("pipeline.billingCheckMaxAttempts must be positive")
	}
	if cfg.WebhookMaxAttempts <= 0 {
		return errors.New("pipeline.webhookMaxAttempts must be positive")
	}
	if cfg.WebhookClientErrorAttempts <= 0 || cfg.WebhookClientErrorAttempts > cfg.WebhookMaxAttempts {
		return errors.New("pipeline.webhookClientErrorAttempts must be within the attempt budget")
	}
	if cfg.BillingCheckTimeout <= 0 || cfg.WebhookTimeout <= 0 {
		return errors.New("pipeline timeouts must be positive")
	}
	if len(cfg.WebhookBackoff) == 0 {
		return errors.New("pipeline.webhookBackoff cannot be empty")
	}
	for _, d := range cfg.WebhookBackoff {
		if d <= 0 {
			return errors.New("pipeline.webhookBackoff delays must be positive")
		}
	}
	return nil
}
