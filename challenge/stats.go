package challenge

// Stats is a read-only projection of the current challenge state.
type Stats struct {
	Challenge string `json:"challenge"`
	Status    Status `json:"status"`

	Balance float64 `json:"balance"`
	Equity  float64 `json:"equity"`
	Profit  float64 `json:"profit"`

	// ProfitPct and TargetPct are fractions, e.g. 0.042 for 4.2%.
	ProfitPct float64 `json:"profit_pct"`
	TargetPct float64 `json:"target_pct"`

	// Progress is ProfitPct relative to the target, capped at 100.
	Progress float64 `json:"progress"`

	DailyDrawdownPct float64 `json:"daily_drawdown_pct"`
	TotalDrawdownPct float64 `json:"total_drawdown_pct"`

	TradingDays    int `json:"trading_days"`
	MinTradingDays int `json:"min_trading_days"`
	TotalTrades    int `json:"total_trades"`
	OpenTrades     int `json:"open_trades"`
	DaysElapsed    int `json:"days_elapsed"`
}

// Stats projects the current state into headline figures. It never
// mutates and is safe to call in any status, terminal ones included.
func (c *Challenge) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	profit := c.balance - c.cfg.InitialBalance
	profitPct := profit / c.cfg.InitialBalance

	progress := 0.0
	if c.cfg.ProfitTargetPct > 0 {
		progress = profitPct / c.cfg.ProfitTargetPct * 100
		if progress > 100 {
			progress = 100
		}
	}

	return Stats{
		Challenge:        c.cfg.Name,
		Status:           c.status,
		Balance:          c.balance,
		Equity:           c.equity,
		Profit:           profit,
		ProfitPct:        profitPct,
		TargetPct:        c.cfg.ProfitTargetPct,
		Progress:         progress,
		DailyDrawdownPct: (c.dailyStartBalance - c.equity) / c.cfg.InitialBalance,
		TotalDrawdownPct: (c.highWaterMark - c.equity) / c.cfg.InitialBalance,
		TradingDays:      len(c.tradingDays),
		MinTradingDays:   c.cfg.MinTradingDays,
		TotalTrades:      len(c.trades),
		OpenTrades:       len(c.open),
		DaysElapsed:      int(c.now().Sub(c.startTime).Hours() / 24),
	}
}
