package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/kgc/internal/ir"
)

// marshalParams converts a VerbConfig to JSON TEXT for storage.
// The verb is stored in its own column; params holds {"verb","params"} so a
// row can be decoded without joining columns.
func marshalParams(cfg ir.VerbConfig) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses params TEXT back into a VerbConfig.
func unmarshalParams(data string) (ir.VerbConfig, error) {
	var cfg ir.VerbConfig
	if data == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return ir.VerbConfig{}, fmt.Errorf("unmarshal params: %w", err)
	}
	return cfg, nil
}

// marshalDelta converts a Delta to canonical JSON TEXT. The stored bytes are
// exactly the bytes hashed into the merkle root.
func marshalDelta(d ir.Delta) (string, error) {
	data, err := ir.MarshalCanonical(d.Canonical())
	if err != nil {
		return "", fmt.Errorf("marshal delta: %w", err)
	}
	return string(data), nil
}

// unmarshalDelta parses canonical delta TEXT ({"additions":[[s,p,o]],...}).
// The batch bound applies on the way back in.
func unmarshalDelta(data string) (ir.Delta, error) {
	var raw struct {
		Additions [][3]string `json:"additions"`
		Removals  [][3]string `json:"removals"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return ir.Delta{}, fmt.Errorf("unmarshal delta: %w", err)
	}
	toTriples := func(rows [][3]string) []ir.Triple {
		out := make([]ir.Triple, len(rows))
		for i, r := range rows {
			out[i] = ir.T(r[0], r[1], r[2])
		}
		return out
	}
	d, err := ir.NewDelta(toTriples(raw.Additions), toTriples(raw.Removals))
	if err != nil {
		return ir.Delta{}, fmt.Errorf("unmarshal delta: %w", err)
	}
	return d, nil
}

func marshalTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func unmarshalTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal timestamp: %w", err)
	}
	return ts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
