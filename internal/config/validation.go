package config

import (
	"fmt"
	"strings"
)

// validate performs basic sanity checks after defaults are applied.
func validate(c *Config) error {
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.ML.validate(); err != nil {
		return err
	}
	if err := c.Recommend.validate(); err != nil {
		return err
	}
	return nil
}

func (c *CacheConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "memory", "redis":
		return nil
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Backend)
	}
}

func (m *MLConfig) validate() error {
	if m.BuyThreshold <= 0 {
		return fmt.Errorf("ml.buy_threshold must be > 0, got %v", m.BuyThreshold)
	}
	if m.SellThreshold >= 0 {
		return fmt.Errorf("ml.sell_threshold must be < 0, got %v", m.SellThreshold)
	}
	if m.LearningRate <= 0 || m.LearningRate >= 1 {
		return fmt.Errorf("ml.learning_rate must be in (0, 1), got %v", m.LearningRate)
	}
	return nil
}

func (r *RecommendConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(r.HoldingPeriod)) {
	case "", "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("recommend.holding_period must be empty, daily, weekly or monthly, got %q", r.HoldingPeriod)
	}
	if r.WeeklyMinVolatility >= r.WeeklyMaxVolatility {
		return fmt.Errorf("recommend.weekly volatility band is empty: [%v, %v]",
			r.WeeklyMinVolatility, r.WeeklyMaxVolatility)
	}
	return nil
}
