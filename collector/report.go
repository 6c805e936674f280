package collector

import "time"

// NodeSummary is one row of the per-node activity report.
type NodeSummary struct {
	NodeID       string    `json:"node_id"`
	LastSeen     time.Time `json:"last_seen"`
	SignalCount  int       `json:"signal_count"`
	OutcomeCount int       `json:"outcome_count"`
}

// StatsReport summarizes collection volume across all nodes.
type StatsReport struct {
	Signals     int           `json:"signals"`
	Outcomes    int           `json:"outcomes"`
	Entropy     int           `json:"entropy"`
	Nodes       int           `json:"nodes"`
	RecentNodes []NodeSummary `json:"recent_nodes"`
}

// SymbolPerformance aggregates realized outcomes per symbol.
type SymbolPerformance struct {
	Symbol   string  `json:"symbol"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// RecentTrade is one realized outcome, newest first.
type RecentTrade struct {
	Symbol     string  `json:"symbol"`
	Outcome    string  `json:"outcome"`
	PnL        float64 `json:"pnl"`
	EntryPrice float64 `json:"entry"`
	ExitPrice  float64 `json:"exit"`
	Time       string  `json:"time"`
}

// EquityPoint is the cumulative realized PnL after one outcome.
type EquityPoint struct {
	PnL  float64 `json:"pnl"`
	Time string  `json:"time"`
}

// SymbolRegime is the latest regime reading reported for a symbol.
type SymbolRegime struct {
	Symbol   string  `json:"symbol"`
	Regime   string  `json:"regime"`
	Entropy  float64 `json:"entropy"`
	Dominant float64 `json:"dominant_state"`
	Time     string  `json:"time"`
}

// PerformanceReport summarizes realized trade outcomes.
type PerformanceReport struct {
	TotalTrades  int                 `json:"total_trades"`
	Wins         int                 `json:"wins"`
	WinRate      float64             `json:"win_rate"`
	TotalPnL     float64             `json:"total_pnl"`
	BySymbol     []SymbolPerformance `json:"by_symbol"`
	RecentTrades []RecentTrade       `json:"recent_trades"`
	EquityCurve  []EquityPoint       `json:"equity_curve"`
	Regimes      []SymbolRegime      `json:"regimes"`
}

// Stats counts stored records and lists the most recently active nodes.
func (s *Store) Stats() (StatsReport, error) {
	var rep StatsReport

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM signals`, &rep.Signals},
		{`SELECT COUNT(*) FROM outcomes`, &rep.Outcomes},
		{`SELECT COUNT(*) FROM entropy`, &rep.Entropy},
		{`SELECT COUNT(*) FROM nodes`, &rep.Nodes},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return StatsReport{}, err
		}
	}

	rows, err := s.db.Query(`
		SELECT node_id, last_seen, signal_count, outcome_count
		FROM nodes
		ORDER BY last_seen DESC
		LIMIT 10`)
	if err != nil {
		return StatsReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var n NodeSummary
		if err := rows.Scan(&n.NodeID, &n.LastSeen, &n.SignalCount, &n.OutcomeCount); err != nil {
			return StatsReport{}, err
		}
		rep.RecentNodes = append(rep.RecentNodes, n)
	}
	return rep, rows.Err()
}

// Performance aggregates realized outcomes overall and per symbol.
func (s *Store) Performance() (PerformanceReport, error) {
	var rep PerformanceReport

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0)
		FROM outcomes`).Scan(&rep.TotalTrades, &rep.Wins, &rep.TotalPnL)
	if err != nil {
		return PerformanceReport{}, err
	}
	if rep.TotalTrades > 0 {
		rep.WinRate = float64(rep.Wins) / float64(rep.TotalTrades)
	}

	rows, err := s.db.Query(`
		SELECT symbol,
		       COUNT(*),
		       SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END),
		       SUM(pnl),
		       AVG(pnl)
		FROM outcomes
		GROUP BY symbol
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return PerformanceReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var sp SymbolPerformance
		if err := rows.Scan(&sp.Symbol, &sp.Trades, &sp.Wins, &sp.TotalPnL, &sp.AvgPnL); err != nil {
			return PerformanceReport{}, err
		}
		if sp.Trades > 0 {
			sp.WinRate = float64(sp.Wins) / float64(sp.Trades)
		}
		rep.BySymbol = append(rep.BySymbol, sp)
	}
	if err := rows.Err(); err != nil {
		return PerformanceReport{}, err
	}

	if rep.RecentTrades, err = s.recentTrades(20); err != nil {
		return PerformanceReport{}, err
	}
	if rep.EquityCurve, err = s.equityCurve(); err != nil {
		return PerformanceReport{}, err
	}
	if rep.Regimes, err = s.latestRegimes(); err != nil {
		return PerformanceReport{}, err
	}
	return rep, nil
}

// Row IDs are monotonic ULIDs, so ordering by id is arrival order.
func (s *Store) recentTrades(limit int) ([]RecentTrade, error) {
	rows, err := s.db.Query(`
		SELECT symbol, outcome, pnl, entry_price, exit_price, sent_at
		FROM outcomes
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecentTrade
	for rows.Next() {
		var rt RecentTrade
		if err := rows.Scan(&rt.Symbol, &rt.Outcome, &rt.PnL, &rt.EntryPrice, &rt.ExitPrice, &rt.Time); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (s *Store) equityCurve() ([]EquityPoint, error) {
	rows, err := s.db.Query(`SELECT pnl, sent_at FROM outcomes ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var curve []EquityPoint
	var cumulative float64
	for rows.Next() {
		var pnl float64
		var ts string
		if err := rows.Scan(&pnl, &ts); err != nil {
			return nil, err
		}
		cumulative += pnl
		curve = append(curve, EquityPoint{PnL: cumulative, Time: ts})
	}
	return curve, rows.Err()
}

func (s *Store) latestRegimes() ([]SymbolRegime, error) {
	rows, err := s.db.Query(`
		SELECT symbol, regime, entropy, dominant, sent_at
		FROM entropy
		WHERE id IN (SELECT MAX(id) FROM entropy GROUP BY symbol)
		ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SymbolRegime
	for rows.Next() {
		var sr SymbolRegime
		if err := rows.Scan(&sr.Symbol, &sr.Regime, &sr.Entropy, &sr.Dominant, &sr.Time); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
