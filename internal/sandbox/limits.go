package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
)

// Limits bundles the per-run resource ceilings loaded from the limits file.
// Once loaded it is never mutated.
type Limits struct {
	TimeLimitMs      int64 `json:"time_limit"`
	MemoryLimitBytes int64 `json:"memory_limit"`
	OutputLimitBytes int64 `json:"output_limit"`
	CompileTimeoutMs int64 `json:"compile_timeout"`
	StackLimitBytes  int64 `json:"stack_limit"`
}

const (
	defaultTimeLimitMs      = 1000
	defaultMemoryLimitBytes = 64 << 20
	defaultOutputLimitBytes = 64_000_000
	defaultCompileTimeoutMs = 30_000
	defaultStackLimitBytes  = 8 << 20
)

// LoadLimits reads a JSON limits file. memory_limit and stack_limit arrive
// in kilobytes and are scaled to bytes here; the rest are already in their
// final unit. Any missing or non-positive value falls back to the default
// for that field.
func LoadLimits(path string) (Limits, error) {
	raw := struct {
		TimeLimit      int64 `json:"time_limit"`
		MemoryLimit    int64 `json:"memory_limit"`
		OutputLimit    int64 `json:"output_limit"`
		CompileTimeout int64 `json:"compile_timeout"`
		StackLimit     int64 `json:"stack_limit"`
	}{}

	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("read limits file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return Limits{}, fmt.Errorf("parse limits file: %w", err)
		}
	}

	l := Limits{
		TimeLimitMs:      raw.TimeLimit,
		MemoryLimitBytes: raw.MemoryLimit * 1024,
		OutputLimitBytes: raw.OutputLimit,
		CompileTimeoutMs: raw.CompileTimeout,
		StackLimitBytes:  raw.StackLimit * 1024,
	}
	if l.TimeLimitMs <= 0 {
		l.TimeLimitMs = defaultTimeLimitMs
	}
	if l.MemoryLimitBytes <= 0 {
		l.MemoryLimitBytes = defaultMemoryLimitBytes
	}
	if l.OutputLimitBytes <= 0 {
		l.OutputLimitBytes = defaultOutputLimitBytes
	}
	if l.CompileTimeoutMs <= 0 {
		l.CompileTimeoutMs = defaultCompileTimeoutMs
	}
	if l.StackLimitBytes <= 0 {
		l.StackLimitBytes = defaultStackLimitBytes
	}
	return l, nil
}
