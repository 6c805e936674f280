// Package telemetry sends trading signals, trade outcomes and entropy
// snapshots to a collection server. Every record is spooled to local
// JSONL files first; network delivery is strictly best effort and a
// failed send is retried on the next Sync.
package telemetry

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/quantumchildren/propsim/internal/id"
)

const (
	wireVersion    = "1.0"
	requestTimeout = 5 * time.Second

	nodeIDFile = ".node_id"
)

// Signal is one trading signal on the wire.
type Signal struct {
	NodeID     string  `json:"node_id"`
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
	Entropy    float64 `json:"quantum_entropy,omitempty"`
	Dominant   float64 `json:"dominant_state,omitempty"`
	Regime     string  `json:"regime,omitempty"`
	Source     string  `json:"source,omitempty"`
	Mode       string  `json:"mode,omitempty"`
	Timestamp  string  `json:"timestamp"`
	Version    string  `json:"version"`
	SigHash    string  `json:"sig_hash"`
}

// Outcome is a realized trade result used for feedback analysis.
type Outcome struct {
	NodeID     string  `json:"node_id"`
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Outcome    string  `json:"outcome"` // WIN, LOSS, BREAKEVEN
	PnL        float64 `json:"pnl"`
	EntryPrice float64 `json:"entry_price,omitempty"`
	ExitPrice  float64 `json:"exit_price,omitempty"`
	Timestamp  string  `json:"timestamp"`
	Version    string  `json:"version"`
}

// EntropySnapshot is a market-regime measurement.
type EntropySnapshot struct {
	NodeID      string  `json:"node_id"`
	Symbol      string  `json:"symbol"`
	Timeframe   string  `json:"timeframe"`
	Entropy     float64 `json:"quantum_entropy"`
	Dominant    float64 `json:"dominant_state"`
	Significant int     `json:"significant_states"`
	Variance    float64 `json:"quantum_variance"`
	Regime      string  `json:"regime,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Version     string  `json:"version"`
}

// Client spools records locally and posts them to the collection server.
// The node ID tagging every record is explicit state owned by the
// client, persisted under the data directory.
type Client struct {
	serverURL string
	nodeID    string
	dataDir   string
	http      *http.Client
	now       func() time.Time
}

// NewClient creates the data directory if needed and loads or generates
// the persistent node ID.
func NewClient(serverURL, dataDir string) (*Client, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}

	nodeID, err := loadOrCreateNodeID(dataDir)
	if err != nil {
		return nil, err
	}

	return &Client{
		serverURL: serverURL,
		nodeID:    nodeID,
		dataDir:   dataDir,
		http:      &http.Client{Timeout: requestTimeout},
		now:       time.Now,
	}, nil
}

// NodeID returns the persistent node identity.
func (c *Client) NodeID() string { return c.nodeID }

func loadOrCreateNodeID(dir string) (string, error) {
	path := filepath.Join(dir, nodeIDFile)

	data, err := os.ReadFile(path)
	if err == nil && len(bytes.TrimSpace(data)) > 0 {
		return string(bytes.TrimSpace(data)), nil
	}

	nodeID := id.Node()
	if err := os.WriteFile(path, []byte(nodeID+"\n"), 0644); err != nil {
		return "", fmt.Errorf("persist node id: %w", err)
	}
	return nodeID, nil
}

// Signal spools and sends one trading signal. The returned flag reports
// whether the server accepted it; false means it is spooled only.
func (c *Client) Signal(s Signal) bool {
	s.NodeID = c.nodeID
	s.Timestamp = c.now().UTC().Format(time.RFC3339)
	s.Version = wireVersion
	s.SigHash = sigHash(c.nodeID, s.Symbol, s.Timestamp)

	c.spool("signals", s)
	return c.post("/signal", s)
}

// Outcome spools and sends one trade outcome.
func (c *Client) Outcome(o Outcome) bool {
	o.NodeID = c.nodeID
	o.Timestamp = c.now().UTC().Format(time.RFC3339)
	o.Version = wireVersion

	c.spool("outcomes", o)
	return c.post("/outcome", o)
}

// Entropy spools and sends one entropy snapshot.
func (c *Client) Entropy(e EntropySnapshot) bool {
	e.NodeID = c.nodeID
	e.Timestamp = c.now().UTC().Format(time.RFC3339)
	e.Version = wireVersion

	c.spool("entropy", e)
	return c.post("/entropy", e)
}

// sigHash is a short dedup key: a collector receiving the same signal
// twice (send + later sync) can drop the duplicate.
func sigHash(nodeID, symbol, timestamp string) string {
	sum := md5.Sum([]byte(nodeID + ":" + symbol + ":" + timestamp))
	return hex.EncodeToString(sum[:])[:16]
}

// post sends one record. All transport failures are swallowed; the
// record is already spooled.
func (c *Client) post(endpoint string, v any) bool {
	body, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return c.postRaw(endpoint, body)
}

func (c *Client) postRaw(endpoint string, body []byte) bool {
	req, err := http.NewRequest(http.MethodPost, c.serverURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Node-ID", c.nodeID)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
