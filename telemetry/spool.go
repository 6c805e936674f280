package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// spool appends one record to the category's JSONL file for the current
// UTC day. Spool failures are reported to stderr but never propagate;
// local backup is best effort too.
func (c *Client) spool(category string, v any) {
	line, err := json.Marshal(v)
	if err != nil {
		return
	}

	path := filepath.Join(c.dataDir, fmt.Sprintf("%s_%s.jsonl", category, c.now().UTC().Format("20060102")))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: spool %s: %v\n", category, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: spool %s: %v\n", category, err)
	}
}

// Sync re-sends spooled records that have not been confirmed yet. A file
// whose records all went through is marked with a .synced sidecar and
// skipped afterwards. Call on startup or periodically.
func (c *Client) Sync() (synced, failed int, err error) {
	files, err := filepath.Glob(filepath.Join(c.dataDir, "*.jsonl"))
	if err != nil {
		return 0, 0, err
	}

	for _, path := range files {
		marker := strings.TrimSuffix(path, ".jsonl") + ".synced"
		if _, err := os.Stat(marker); err == nil {
			continue
		}

		fileFailed := 0
		if err := c.syncFile(path, &synced, &fileFailed); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry: sync %s: %v\n", path, err)
			failed += fileFailed
			continue
		}
		failed += fileFailed

		if fileFailed == 0 {
			if err := os.WriteFile(marker, nil, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "telemetry: mark synced: %v\n", err)
			}
		}
	}
	return synced, failed, nil
}

func (c *Client) syncFile(path string, synced, failed *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	endpoint := endpointFor(filepath.Base(path))

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if c.postRaw(endpoint, []byte(line)) {
			*synced++
		} else {
			*failed++
		}
	}
	return scanner.Err()
}

// endpointFor maps a spool filename back to its collection endpoint.
func endpointFor(name string) string {
	switch {
	case strings.HasPrefix(name, "outcomes_"):
		return "/outcome"
	case strings.HasPrefix(name, "entropy_"):
		return "/entropy"
	default:
		return "/signal"
	}
}

// LocalStats counts spooled records per category.
func (c *Client) LocalStats() (map[string]int, error) {
	stats := map[string]int{"signals": 0, "outcomes": 0, "entropy": 0}

	files, err := filepath.Glob(filepath.Join(c.dataDir, "*.jsonl"))
	if err != nil {
		return nil, err
	}

	for _, path := range files {
		category := filepath.Base(path)
		if i := strings.Index(category, "_"); i > 0 {
			category = category[:i]
		}
		if _, ok := stats[category]; !ok {
			continue
		}

		n, err := countLines(path)
		if err != nil {
			continue
		}
		stats[category] += n
	}
	return stats, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n, scanner.Err()
}
