package telemetry

import "github.com/quantumchildren/propsim/challenge"

// Notifier adapts the Client to the engine's notification interface.
// Sends run on their own goroutine so the trade path never blocks on
// the network; delivery failure only means the record stays spooled.
type Notifier struct {
	client *Client
}

func NewNotifier(c *Client) *Notifier {
	return &Notifier{client: c}
}

func (n *Notifier) TradeOpened(note challenge.TradeNote) {
	s := Signal{
		Symbol:     note.Symbol,
		Direction:  note.Direction,
		Confidence: note.Confidence,
		Price:      note.Price,
		Source:     note.Source,
		Mode:       "SIMULATED_CHALLENGE",
	}
	go n.client.Signal(s)
}
