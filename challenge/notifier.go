package challenge

// TradeNote describes an opened trade for the telemetry sink. The node
// identity tagging the note belongs to the Notifier implementation, not
// to the engine.
type TradeNote struct {
	Symbol     string
	Direction  string
	Volume     float64
	Price      float64
	Confidence float64
	Source     string
}

// Notifier receives best-effort notifications about opened trades.
// Implementations must not block and must swallow their own failures;
// the engine stays correct if every call silently fails.
type Notifier interface {
	TradeOpened(TradeNote)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) TradeOpened(TradeNote) {}
