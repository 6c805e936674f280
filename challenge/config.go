package challenge

import "fmt"

// Config holds the immutable rule set of a challenge. Fractions are
// expressed as decimals, e.g. 0.08 for an 8% profit target.
type Config struct {
	Name           string  `json:"name" yaml:"name"`
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`

	ProfitTargetPct     float64 `json:"profit_target_pct" yaml:"profit_target_pct"`
	MaxDailyDrawdownPct float64 `json:"max_daily_drawdown_pct" yaml:"max_daily_drawdown_pct"`
	MaxTotalDrawdownPct float64 `json:"max_total_drawdown_pct" yaml:"max_total_drawdown_pct"`

	// TimeLimitDays of 0 means the challenge never expires.
	TimeLimitDays int `json:"time_limit_days" yaml:"time_limit_days"`

	// MinTradingDays is the number of distinct calendar days on which at
	// least one trade must have been opened before the challenge can pass.
	MinTradingDays int `json:"min_trading_days" yaml:"min_trading_days"`
}

// Validate checks the field constraints. Any Config passing Validate is
// accepted by the engine, not just the named presets.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("challenge name is required")
	}
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be positive, got %v", c.InitialBalance)
	}
	if c.ProfitTargetPct <= 0 {
		return fmt.Errorf("profit_target_pct must be positive, got %v", c.ProfitTargetPct)
	}
	if c.MaxDailyDrawdownPct <= 0 || c.MaxDailyDrawdownPct > 1 {
		return fmt.Errorf("max_daily_drawdown_pct must be in (0, 1], got %v", c.MaxDailyDrawdownPct)
	}
	if c.MaxTotalDrawdownPct <= 0 || c.MaxTotalDrawdownPct > 1 {
		return fmt.Errorf("max_total_drawdown_pct must be in (0, 1], got %v", c.MaxTotalDrawdownPct)
	}
	if c.TimeLimitDays < 0 {
		return fmt.Errorf("time_limit_days must not be negative, got %d", c.TimeLimitDays)
	}
	if c.MinTradingDays < 0 {
		return fmt.Errorf("min_trading_days must not be negative, got %d", c.MinTradingDays)
	}
	return nil
}
