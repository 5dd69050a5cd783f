// Package sink appends per-probe records to a delimited data file.
//
// The format is fixed by existing deployments: a header line on new or
// empty files, one row per probe, quote-bearing fields wrapped in quotes
// with inner quotes backslash-escaped. That escaping predates this port
// and is not RFC 4180, which is why encoding/csv is not used.
package sink

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const header = "timestamp,host,state,status,rtt\n"

// CSVLog is an append-only per-probe data sink. A CSVLog with an empty
// path is disabled: Open succeeds and Add is a no-op.
type CSVLog struct {
	path string
	f    *os.File
}

// NewCSVLog creates a sink for path. An empty path disables the sink.
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Filename returns the configured path, empty when disabled.
func (c *CSVLog) Filename() string { return c.path }

// Enabled reports whether records will actually be written.
func (c *CSVLog) Enabled() bool { return c.path != "" }

// Open opens (or creates) the file for appending and writes the header
// when the file is empty. Failure to open a sink the user asked for is an
// error for the caller, not a silent downgrade.
func (c *CSVLog) Open() error {
	if c.path == "" {
		return nil
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open data file %s: %w", c.path, err)
	}
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return fmt.Errorf("open data file %s: %w", c.path, err)
	}
	if pos == 0 {
		if _, err := f.WriteString(header); err != nil {
			f.Close()
			return fmt.Errorf("write data file header: %w", err)
		}
	}
	c.f = f
	return nil
}

// Add appends one probe record. timestamp is the probe's send time as
// Unix seconds; rtt is milliseconds, 0 when no round trip was measured.
func (c *CSVLog) Add(timestamp float64, host, state, status string, rtt float64) error {
	if c.f == nil {
		return nil
	}
	_, err := fmt.Fprintf(c.f, "%.6f,%s,%s,%s,%s\n",
		timestamp, escapeField(host), state, escapeField(status), formatRTT(rtt))
	return err
}

// Close releases the file; safe on a disabled or unopened sink.
func (c *CSVLog) Close() error {
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	return err
}

func escapeField(s string) string {
	if !strings.Contains(s, `"`) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func formatRTT(rtt float64) string {
	if rtt <= 0 {
		return "0.0"
	}
	out := strconv.FormatFloat(rtt, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}
