// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package export writes saved sessions to shareable files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/racket_tracker/internal/session"
	"github.com/relabs-tech/racket_tracker/internal/store"
)

// TimelineBinSec is the bin width of the exported swing timeline.
const TimelineBinSec = 5

// Format selects the file encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromString parses a format name. "yml" is accepted for YAML.
func FormatFromString(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use json or yaml)", s)
	}
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// SessionDocument is everything known about one saved session.
type SessionDocument struct {
	Record   store.Record     `json:"record" yaml:"record"`
	Events   []session.Event  `json:"events" yaml:"events"`
	Timeline session.Timeline `json:"timeline" yaml:"timeline"`
}

// NewSessionDocument bins the events over the session's own time span.
func NewSessionDocument(rec store.Record, events []session.Event) SessionDocument {
	if events == nil {
		events = []session.Event{}
	}
	times := make([]int64, len(events))
	for i, ev := range events {
		times[i] = ev.TMs
	}

	var tl session.Timeline
	if len(times) > 0 {
		start := rec.Summary.StartedAtMs
		end := start + rec.Summary.DurationMs
		tl = session.BucketCounts(times, TimelineBinSec, &start, &end)
	} else {
		tl = session.BucketCounts(nil, TimelineBinSec, nil, nil)
	}
	return SessionDocument{Record: rec, Events: events, Timeline: tl}
}

// Encode renders v in format.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case JSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("json encode: %w", err)
		}
		return append(data, '\n'), nil
	case YAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("yaml encode: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Write encodes v into dir/name.<ext>, creating dir if needed, and returns the path.
func Write(dir, name string, format Format, v any) (string, error) {
	data, err := Encode(format, v)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+"."+format.Ext())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
