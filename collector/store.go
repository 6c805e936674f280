// Package collector implements the inbound collection service: an HTTP
// surface that receives telemetry records from nodes and stores them in
// SQLite, plus read-only aggregate reports.
package collector

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantumchildren/propsim/internal/id"
	"github.com/quantumchildren/propsim/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	node_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	confidence REAL NOT NULL,
	price REAL NOT NULL,
	entropy REAL NOT NULL,
	regime TEXT NOT NULL,
	source TEXT NOT NULL,
	mode TEXT NOT NULL,
	sig_hash TEXT NOT NULL,
	sent_at TEXT NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_signals_sig_hash
	ON signals(sig_hash) WHERE sig_hash != '';

CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	node_id TEXT NOT NULL,
	ticket INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	outcome TEXT NOT NULL,
	pnl REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	sent_at TEXT NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS entropy (
	id TEXT PRIMARY KEY,
	node_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	entropy REAL NOT NULL,
	dominant REAL NOT NULL,
	significant INTEGER NOT NULL,
	variance REAL NOT NULL,
	regime TEXT NOT NULL,
	price REAL NOT NULL,
	sent_at TEXT NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	node_id TEXT PRIMARY KEY,
	first_seen DATETIME NOT NULL,
	last_seen DATETIME NOT NULL,
	signal_count INTEGER NOT NULL DEFAULT 0,
	outcome_count INTEGER NOT NULL DEFAULT 0,
	entropy_count INTEGER NOT NULL DEFAULT 0
);
`

// Store persists collected telemetry in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSignal stores one signal. A record whose sig_hash was already
// seen (a send later replayed by Sync) is silently dropped.
func (s *Store) InsertSignal(sig telemetry.Signal) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO signals
		(id, node_id, symbol, direction, confidence, price, entropy, regime, source, mode, sig_hash, sent_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.Record(), sig.NodeID, sig.Symbol, sig.Direction, sig.Confidence,
		sig.Price, sig.Entropy, sig.Regime, sig.Source, sig.Mode,
		sig.SigHash, sig.Timestamp, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	return s.touchNode(sig.NodeID, 1, 0, 0)
}

func (s *Store) InsertOutcome(o telemetry.Outcome) error {
	_, err := s.db.Exec(`
		INSERT INTO outcomes
		(id, node_id, ticket, symbol, outcome, pnl, entry_price, exit_price, sent_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.Record(), o.NodeID, o.Ticket, o.Symbol, o.Outcome, o.PnL,
		o.EntryPrice, o.ExitPrice, o.Timestamp, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	return s.touchNode(o.NodeID, 0, 1, 0)
}

func (s *Store) InsertEntropy(e telemetry.EntropySnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO entropy
		(id, node_id, symbol, timeframe, entropy, dominant, significant, variance, regime, price, sent_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.Record(), e.NodeID, e.Symbol, e.Timeframe, e.Entropy, e.Dominant,
		e.Significant, e.Variance, e.Regime, e.Price, e.Timestamp, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	return s.touchNode(e.NodeID, 0, 0, 1)
}

func (s *Store) touchNode(nodeID string, signals, outcomes, entropies int) error {
	if nodeID == "" {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO nodes (node_id, first_seen, last_seen, signal_count, outcome_count, entropy_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			signal_count = signal_count + excluded.signal_count,
			outcome_count = outcome_count + excluded.outcome_count,
			entropy_count = entropy_count + excluded.entropy_count`,
		nodeID, now, now, signals, outcomes, entropies,
	)
	return err
}
