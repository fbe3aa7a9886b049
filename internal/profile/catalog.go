// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultSport is used when a session is started without a sport key.
const DefaultSport = "tennis"

//go:embed profiles.toml
var defaultProfiles []byte

// fileProfile mirrors Profile with pointers so a missing key is detectable.
type fileProfile struct {
	RallyGapSec  *float64 `toml:"rallyGapSec"`
	AccelHpHz    *float64 `toml:"accelHpHz"`
	ImpactG      *float64 `toml:"impactG"`
	GyroPeakDps  *float64 `toml:"gyroPeakDps"`
	RadiusM      *float64 `toml:"radiusM"`
	RefractoryMs *float64 `toml:"refractoryMs"`
}

// Catalog maps sport keys to their profile definitions.
type Catalog struct {
	entries map[string]fileProfile
}

// Default returns the built-in catalogue (tennis, padel, pickleball).
func Default() *Catalog {
	c, err := Parse(defaultProfiles)
	if err != nil {
		panic(fmt.Sprintf("profile: embedded profiles.toml: %v", err))
	}
	return c
}

// Load reads a catalogue file. A missing file yields the built-in catalogue.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profiles %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a TOML catalogue with one table per sport. Type mismatches are
// reported as ErrInvalidProfile.
func Parse(data []byte) (*Catalog, error) {
	entries := map[string]fileProfile{}
	if _, err := toml.Decode(string(data), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return &Catalog{entries: entries}, nil
}

// Keys lists the sports in the catalogue, sorted.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the validated profile for sport.
func (c *Catalog) Lookup(sport string) (Profile, error) {
	fp, ok := c.entries[sport]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownSport, sport)
	}

	var p Profile
	fields := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"rallyGapSec", fp.RallyGapSec, &p.RallyGapSec},
		{"accelHpHz", fp.AccelHpHz, &p.AccelHpHz},
		{"impactG", fp.ImpactG, &p.ImpactG},
		{"gyroPeakDps", fp.GyroPeakDps, &p.GyroPeakDps},
		{"radiusM", fp.RadiusM, &p.RadiusM},
		{"refractoryMs", fp.RefractoryMs, &p.RefractoryMs},
	}
	for _, f := range fields {
		if f.src == nil {
			return Profile{}, fmt.Errorf("%w: %s: missing %s", ErrInvalidProfile, sport, f.name)
		}
		*f.dst = *f.src
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", sport, err)
	}
	return p, nil
}
