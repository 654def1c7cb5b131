package models

import (
	"fmt"
	"regexp"
	"strings"
)

// GenericTierColor is used for custom tiers without an explicit color
const GenericTierColor = "#ffffff"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TierConfig defines a canonical tier and its default color
type TierConfig struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

// Swatch is a named color offered by the settings panel
type Swatch struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	BgColor  string `json:"bg_color"`
	IsCustom bool   `json:"is_custom,omitempty"`
}

// DefaultTiers returns standard S-F tier configuration
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Key: "S", Name: "S Tier", Color: "#ff7f80", Order: 0},
		{Key: "A", Name: "A Tier", Color: "#ffbf7f", Order: 1},
		{Key: "B", Name: "B Tier", Color: "#ffdf80", Order: 2},
		{Key: "C", Name: "C Tier", Color: "#ffff7f", Order: 3},
		{Key: "D", Name: "D Tier", Color: "#bfff7f", Order: 4},
		{Key: "F", Name: "F Tier", Color: "#7fff7f", Order: 5},
	}
}

// CanonicalTierKeys returns the fixed display sequence S, A, B, C, D, F
func CanonicalTierKeys() []string {
	tiers := DefaultTiers()
	keys := make([]string, len(tiers))
	for i, t := range tiers {
		keys[i] = t.Key
	}
	return keys
}

// SwatchPalette returns the colors the settings panel offers
func SwatchPalette() []Swatch {
	return []Swatch{
		{Name: "Red", Color: "#ff7f80", BgColor: "#fef2f2"},
		{Name: "Orange", Color: "#ffbf7f", BgColor: "#fff7ed"},
		{Name: "Yellow", Color: "#ffdf80", BgColor: "#fefce8"},
		{Name: "Light Yellow", Color: "#ffff7f", BgColor: "#fefce8"},
		{Name: "Light Green", Color: "#bfff7f", BgColor: "#f0fdf4"},
		{Name: "Green", Color: "#7fff7f", BgColor: "#f0fdf4"},
		{Name: "Purple", Color: "#a855f7", BgColor: "#faf5ff"},
		{Name: "Pink", Color: "#ec4899", BgColor: "#fdf2f8"},
		{Name: "Steam Blue", Color: "#1b2838", BgColor: "#66c0f4"},
		{Name: "Custom", Color: "#ffffff", BgColor: "#ffffff", IsCustom: true},
	}
}

// TierColorMap holds user-chosen tier colors. It is independent of the board.
type TierColorMap map[string]string

// Color returns the explicit color for key, the palette default for a
// canonical key, or GenericTierColor
func (m TierColorMap) Color(key string) string {
	if c, ok := m[key]; ok && c != "" {
		return c
	}
	for _, t := range DefaultTiers() {
		if t.Key == key {
			return t.Color
		}
	}
	return GenericTierColor
}

// Set returns a copy of m with key colored color
func (m TierColorMap) Set(key, color string) (TierColorMap, error) {
	if strings.TrimSpace(key) == "" {
		return m, fmt.Errorf("tier key is required")
	}
	if !hexColor.MatchString(color) {
		return m, fmt.Errorf("invalid color %q: want #rrggbb", color)
	}
	out := make(TierColorMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = strings.ToLower(color)
	return out, nil
}

// Resolve returns the effective color for each key
func (m TierColorMap) Resolve(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = m.Color(k)
	}
	return out
}
