package challenge

import (
	"fmt"
	"strings"
)

// Certificate renders a shareable proof of passing. It returns ok=false
// without text unless the challenge has passed. Given the same state the
// text is deterministic except for the generation timestamp line.
func (c *Challenge) Certificate() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Passed {
		return "", false
	}

	profit := c.balance - c.cfg.InitialBalance
	profitPct := profit / c.cfg.InitialBalance * 100

	var b strings.Builder
	line := strings.Repeat("=", 62)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "           SIMULATED CHALLENGE CERTIFICATE")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "  Challenge: %s\n", c.cfg.Name)
	fmt.Fprintf(&b, "  Status:    PASSED\n")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Starting Balance: $%.2f\n", c.cfg.InitialBalance)
	fmt.Fprintf(&b, "  Final Balance:    $%.2f\n", c.balance)
	fmt.Fprintf(&b, "  Profit:           $%+.2f (%.2f%%)\n", profit, profitPct)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Trading Days: %d\n", len(c.tradingDays))
	fmt.Fprintf(&b, "  Total Trades: %d\n", len(c.trades))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "  Started: %s\n", c.startTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "  Passed:  %s\n", c.now().Format("2006-01-02 15:04"))
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "This certificate records completion of a simulated trading")
	fmt.Fprintln(&b, "challenge. Results are based on simulated data and do not")
	fmt.Fprintln(&b, "guarantee future performance.")

	return b.String(), true
}
