package collector

import (
	"fmt"
	"time"
)

// Alert thresholds over the realized-outcome stream.
const (
	lossStreakAlert    = 3
	lossStreakSevere   = 5
	largeLossFloor     = -0.50
	winRateDropPct     = 10.0
	winRateWindow      = 20
	regimeAlertHistory = 5
)

// Alert is one significant event for the notification system.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Time     string `json:"time"`
}

// AlertsReport lists recent significant events.
type AlertsReport struct {
	Alerts []Alert `json:"alerts"`
	Count  int     `json:"count"`
}

// Alerts scans recent outcomes and regime readings for conditions worth
// notifying on: a losing streak, outsized single losses, a win-rate
// drop against the overall rate, and symbols stuck in the untradeable
// regime.
func (s *Store) Alerts() (AlertsReport, error) {
	var alerts []Alert

	streakAlert, err := s.lossStreak()
	if err != nil {
		return AlertsReport{}, err
	}
	if streakAlert != nil {
		alerts = append(alerts, *streakAlert)
	}

	losses, err := s.largeLosses()
	if err != nil {
		return AlertsReport{}, err
	}
	alerts = append(alerts, losses...)

	drop, err := s.winRateDrop()
	if err != nil {
		return AlertsReport{}, err
	}
	if drop != nil {
		alerts = append(alerts, *drop)
	}

	regimes, err := s.choppyRegimes()
	if err != nil {
		return AlertsReport{}, err
	}
	alerts = append(alerts, regimes...)

	return AlertsReport{Alerts: alerts, Count: len(alerts)}, nil
}

// lossStreak counts consecutive losing trades from the newest backward.
func (s *Store) lossStreak() (*Alert, error) {
	rows, err := s.db.Query(`
		SELECT pnl, sent_at FROM outcomes ORDER BY id DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	streak := 0
	var newest string
	for rows.Next() {
		var pnl float64
		var ts string
		if err := rows.Scan(&pnl, &ts); err != nil {
			return nil, err
		}
		if newest == "" {
			newest = ts
		}
		if pnl >= 0 {
			break
		}
		streak++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if streak < lossStreakAlert {
		return nil, nil
	}

	severity := "medium"
	if streak >= lossStreakSevere {
		severity = "high"
	}
	return &Alert{
		Type:     "DRAWDOWN",
		Severity: severity,
		Message:  fmt.Sprintf("%d consecutive losing trades", streak),
		Time:     newest,
	}, nil
}

func (s *Store) largeLosses() ([]Alert, error) {
	rows, err := s.db.Query(`
		SELECT symbol, pnl, sent_at FROM outcomes
		WHERE pnl < ?
		ORDER BY id DESC
		LIMIT 5`, largeLossFloor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var symbol, ts string
		var pnl float64
		if err := rows.Scan(&symbol, &pnl, &ts); err != nil {
			return nil, err
		}
		alerts = append(alerts, Alert{
			Type:     "LARGE_LOSS",
			Severity: "high",
			Message:  fmt.Sprintf("%s: $%.2f loss", symbol, pnl),
			Time:     ts,
		})
	}
	return alerts, rows.Err()
}

// winRateDrop compares the win rate of the last trades against the
// overall rate; both default to 50% when there is no history.
func (s *Store) winRateDrop() (*Alert, error) {
	overall, err := s.winRatePct(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0) FROM outcomes`)
	if err != nil {
		return nil, err
	}
	recent, err := s.winRatePct(fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0)
		FROM (SELECT pnl FROM outcomes ORDER BY id DESC LIMIT %d)`, winRateWindow))
	if err != nil {
		return nil, err
	}

	if overall-recent <= winRateDropPct {
		return nil, nil
	}
	return &Alert{
		Type:     "WIN_RATE_DROP",
		Severity: "medium",
		Message:  fmt.Sprintf("Win rate dropped: %.0f%% recent vs %.0f%% overall", recent, overall),
		Time:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Store) winRatePct(query string) (float64, error) {
	var total, wins int
	if err := s.db.QueryRow(query).Scan(&total, &wins); err != nil {
		return 0, err
	}
	if total == 0 {
		return 50, nil
	}
	return float64(wins) / float64(total) * 100, nil
}

// choppyRegimes flags symbols whose latest readings fell into the
// untradeable regime.
func (s *Store) choppyRegimes() ([]Alert, error) {
	rows, err := s.db.Query(`
		SELECT symbol, regime, sent_at FROM entropy
		ORDER BY id DESC
		LIMIT ?`, regimeAlertHistory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var symbol, regime, ts string
		if err := rows.Scan(&symbol, &regime, &ts); err != nil {
			return nil, err
		}
		if regime != "CHOPPY" {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     "REGIME_CHOPPY",
			Severity: "medium",
			Message:  fmt.Sprintf("%s entered CHOPPY regime", symbol),
			Time:     ts,
		})
	}
	return alerts, rows.Err()
}
