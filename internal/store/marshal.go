package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/pvregress/internal/ir"
)

const timeLayout = time.RFC3339Nano

// marshalEnv converts a solver environment to canonical JSON TEXT for storage.
func marshalEnv(env ir.IRObject) (string, error) {
	if env == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(env)
	if err != nil {
		return "", fmt.Errorf("marshal solver environment: %w", err)
	}
	return string(data), nil
}

// unmarshalEnv parses canonical JSON TEXT to IRObject.
func unmarshalEnv(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal solver environment: %w", err)
	}
	return obj, nil
}

// marshalMessages stores mismatch lines as a canonical JSON array of strings.
func marshalMessages(msgs []string) (string, error) {
	arr := make(ir.IRArray, len(msgs))
	for i, m := range msgs {
		arr[i] = ir.IRString(m)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal mismatches: %w", err)
	}
	return string(data), nil
}

func unmarshalMessages(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var msgs []string
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, fmt.Errorf("unmarshal mismatches: %w", err)
	}
	return msgs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
