// Package id issues the identifiers the simulator hands out: row IDs
// for collected telemetry records and the node identity tag every
// record carries. Both are ULIDs, which sort lexicographically by
// creation time, so telemetry rows stay in arrival order in SQLite
// without an extra index.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// nodePrefix marks node identities apart from record IDs on the wire
// and in server logs.
const nodePrefix = "QC_"

type generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newGenerator() *generator {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic entropy keeps IDs issued within the same millisecond
	// strictly increasing.
	return &generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

func (g *generator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		// Only possible if the clock or entropy source fails.
		panic(err)
	}
	return u.String()
}

var defaultGen = newGenerator()

// Record returns a fresh row ID for a collected telemetry record.
func Record() string {
	return defaultGen.next()
}

// Node returns a fresh node identity, e.g. "QC_01J...". Issued once
// per installation and persisted by the telemetry client.
func Node() string {
	return nodePrefix + defaultGen.next()
}
