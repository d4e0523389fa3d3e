package config

import (
	"github.com/kchmck/p25rx/internal/p25const"
	"github.com/kchmck/p25rx/internal/policy"
	"github.com/kchmck/p25rx/internal/talkgroup"
)

// policyConfig builds a policy.Config, substituting p25const's
// defaults for any zero threshold.
func (c *Config) policyConfig() policy.Config {
	cfg := policy.Config{
		SelectSamples:   c.Policy.SelectSamples,
		WatchdogSamples: c.Policy.WatchdogSamples,
		PauseSamples:    c.Policy.PauseSamples,
	}
	if cfg.SelectSamples == 0 {
		cfg.SelectSamples = p25const.SelectSamples
	}
	if cfg.WatchdogSamples == 0 {
		cfg.WatchdogSamples = p25const.WatchdogSamples
	}
	if cfg.PauseSamples == 0 {
		cfg.PauseSamples = p25const.PauseSamples
	}
	return cfg
}

// NewPolicy builds the trunking policy engine per this config.
func (c *Config) NewPolicy() *policy.Policy {
	return policy.New(c.policyConfig())
}

// NewSelector builds the talkgroup selector per this config.
func (c *Config) NewSelector() *talkgroup.Selector {
	weights := talkgroup.DefaultWeights
	if c.Talkgroup.Weights != (WeightsConfig{}) {
		weights = talkgroup.Weights{
			Prio:   c.Talkgroup.Weights.Prio,
			Age:    c.Talkgroup.Weights.Age,
			Recent: c.Talkgroup.Weights.Recent,
		}
	}

	var filter talkgroup.Filter
	if len(c.Talkgroup.Include) > 0 || len(c.Talkgroup.Exclude) > 0 {
		filter = talkgroup.NewIncludeExcludeFilter(c.Talkgroup.Include, c.Talkgroup.Exclude)
	}

	return talkgroup.New(c.Talkgroup.Preempt, filter, c.Talkgroup.Priority, weights)
}
