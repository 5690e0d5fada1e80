// Package telemetry holds the named-value table shared between the driver
// station, the vision system and the robot program.
package telemetry

import (
	"sort"
	"sync"
)

// Well-known keys.
const (
	KeyPipeline = "limelight/pipeline"
	KeyKeypad   = "keypad/key"
	KeyAlliance = "fms/isBlue"
)

// Table is a concurrency-safe map of named numbers, booleans and strings.
type Table struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]any)}
}

func (t *Table) set(key string, v any) {
	t.mu.Lock()
	t.values[key] = v
	t.mu.Unlock()
}

func (t *Table) get(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	return v, ok
}

func (t *Table) SetNumber(key string, v float64) { t.set(key, v) }
func (t *Table) SetBool(key string, v bool)      { t.set(key, v) }
func (t *Table) SetString(key string, v string)  { t.set(key, v) }

// Number returns the number at key, or def when the key is missing or holds
// another type.
func (t *Table) Number(key string, def float64) float64 {
	if v, ok := t.get(key); ok {
		if n, ok := v.(float64); ok {
			return n
		}
	}
	return def
}

// Bool returns the boolean at key, or def.
func (t *Table) Bool(key string, def bool) bool {
	if v, ok := t.get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// String returns the string at key, or def.
func (t *Table) String(key string, def string) string {
	if v, ok := t.get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Keys returns every key in sorted order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	t.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Pipeline returns the selected vision pipeline.
func (t *Table) Pipeline() int {
	return int(t.Number(KeyPipeline, 0))
}

// SetPipeline selects a vision pipeline.
func (t *Table) SetPipeline(n int) {
	t.SetNumber(KeyPipeline, float64(n))
}

// Keypad returns the last digit pressed on the operator keypad, 0 when none.
func (t *Table) Keypad() int {
	return int(t.Number(KeyKeypad, 0))
}

// IsBlueAlliance reports the alliance color, blue when unknown.
func (t *Table) IsBlueAlliance() bool {
	return t.Bool(KeyAlliance, true)
}
