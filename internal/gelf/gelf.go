// Package gelf ships slog JSON records to a Graylog input over UDP.
package gelf

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// Syslog severities used by GELF.
const (
	levelError   = 3
	levelWarning = 4
	levelInfo    = 6
	levelDebug   = 7
)

// maxDatagram keeps messages under the usual UDP payload ceiling. Chunking
// is not implemented; oversized records lose their extra fields.
const (
	maxDatagram = 8192
	maxShort    = 1024
)

// Writer sends GELF messages over UDP and implements io.Writer so it can sit
// behind slog.NewJSONHandler, typically via io.MultiWriter.
type Writer struct {
	mu       sync.Mutex
	conn     net.Conn
	hostname string
	service  string
	now      func() time.Time
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("gelf: dial %s: %w", addr, err)
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}
	return &Writer{conn: conn, hostname: hostname, service: service, now: time.Now}, nil
}

// Write converts one slog JSON record into one GELF message. Lines that are
// not JSON are sent verbatim at informational level. Write never fails the
// log call.
func (w *Writer) Write(p []byte) (int, error) {
	msg := w.message(p)
	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil
	}
	if len(payload) > maxDatagram {
		if payload, err = json.Marshal(trimmed(msg)); err != nil {
			return len(p), nil
		}
	}
	w.mu.Lock()
	_, _ = w.conn.Write(payload)
	w.mu.Unlock()
	return len(p), nil
}

func (w *Writer) message(p []byte) map[string]any {
	line := strings.TrimRight(string(p), "\n")
	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(w.now().UnixNano()) / 1e9,
		"level":     levelInfo,
		"_service":  w.service,
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		msg["short_message"] = line
		return msg
	}

	short, _ := record["msg"].(string)
	if short == "" {
		short = line
	}
	msg["short_message"] = short
	if lvl, ok := record["level"].(string); ok {
		msg["level"] = syslogLevel(lvl)
	}
	if ts, ok := record["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg["timestamp"] = float64(t.UnixNano()) / 1e9
		}
	}
	for k, v := range record {
		switch k {
		case "msg", "level", "time":
			continue
		case "id":
			// "_id" is reserved by GELF.
			k = "record_id"
		}
		msg["_"+k] = v
	}
	return msg
}

func trimmed(msg map[string]any) map[string]any {
	short, _ := msg["short_message"].(string)
	if len(short) > maxShort {
		short = short[:maxShort]
	}
	return map[string]any{
		"version":       msg["version"],
		"host":          msg["host"],
		"timestamp":     msg["timestamp"],
		"level":         msg["level"],
		"_service":      msg["_service"],
		"_truncated":    true,
		"short_message": short,
	}
}

// syslogLevel maps slog level names, including offsets like "WARN+2", onto
// syslog severities.
func syslogLevel(lvl string) int {
	switch {
	case strings.HasPrefix(lvl, "ERROR"):
		return levelError
	case strings.HasPrefix(lvl, "WARN"):
		return levelWarning
	case strings.HasPrefix(lvl, "DEBUG"):
		return levelDebug
	default:
		return levelInfo
	}
}

func (w *Writer) Close() error {
	return w.conn.Close()
}
