// Package slug derives URL-safe identifiers from human names and tracks
// whether the identifier is still derived (auto) or was typed by the user
// (manual).
package slug

import (
	"regexp"
	"strings"
)

// Mode tells whether a slug follows the name or was edited directly.
type Mode int

const (
	// Auto re-derives the value every time the name changes.
	Auto Mode = iota
	// Manual freezes the value until Reset.
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "auto"
}

// ParseMode is the inverse of Mode.String. Unknown text yields Auto.
func ParseMode(s string) Mode {
	if s == "manual" {
		return Manual
	}
	return Auto
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Derive lowercases name, collapses every run of characters outside
// [a-z0-9] into a single hyphen and trims hyphens from both ends.
//
//	Derive("Lotus   Temple!!") // "lotus-temple"
//	Derive("  A--B  ")         // "a-b"
func Derive(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// State is the slug field of an editor. The zero value is an empty auto slug.
type State struct {
	Mode  Mode
	Value string
}

// New returns an empty slug in auto mode, as used by a fresh create form.
func New() State {
	return State{Mode: Auto}
}

// Reset returns a manual slug seeded with value. Hydrating an existing
// record uses it so the stored slug never silently re-derives from the name.
func Reset(value string) State {
	return State{Mode: Manual, Value: value}
}

// Generate follows a name change. Manual slugs are returned unchanged.
func (s State) Generate(name string) State {
	if s.Mode == Manual {
		return s
	}
	return State{Mode: Auto, Value: Derive(name)}
}

// Edit records a direct edit of the slug field and switches to manual.
func (s State) Edit(text string) State {
	return State{Mode: Manual, Value: text}
}
