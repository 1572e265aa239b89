// Package input canonicalizes raw source and phase labels and guards numeric fields.
package input

import (
	"math"
	"strings"

	"github.com/verte-zerg/penpipe/internal/model"
)

var sourceAliases = map[string]model.Source{
	"wintab":        model.SourceWintab,
	"win_tab":       model.SourceWintab,
	"win-tab":       model.SourceWintab,
	"windowsink":    model.SourceWindowsInk,
	"windows_ink":   model.SourceWindowsInk,
	"win_ink":       model.SourceWindowsInk,
	"wm_pointer":    model.SourceWindowsInk,
	"macnative":     model.SourceMacNative,
	"mac_native":    model.SourceMacNative,
	"mac-native":    model.SourceMacNative,
	"cocoa":         model.SourceMacNative,
	"pointerevent":  model.SourcePointerEvent,
	"pointer_event": model.SourcePointerEvent,
	"pointer-event": model.SourcePointerEvent,
	"pointer":       model.SourcePointerEvent,
	"mouse":         model.SourceMouse,
	"touch":         model.SourceTouch,
	"touchscreen":   model.SourceTouch,
}

var phaseAliases = map[string]model.Phase{
	"hover":        model.PhaseHover,
	"pointerhover": model.PhaseHover,
	"down":         model.PhaseDown,
	"pointerdown":  model.PhaseDown,
	"press":        model.PhaseDown,
	"move":         model.PhaseMove,
	"pointermove":  model.PhaseMove,
	"drag":         model.PhaseMove,
	"up":           model.PhaseUp,
	"pointerup":    model.PhaseUp,
	"release":      model.PhaseUp,
}

// NormalizeSource maps a raw source label onto the closed source set.
// The second result is false when the label is unknown; callers must count
// such samples as unresolved rather than coerce them.
func NormalizeSource(raw string) (model.Source, bool) {
	src, ok := sourceAliases[strings.ToLower(strings.TrimSpace(raw))]
	return src, ok
}

// NormalizePhase maps a raw phase label onto a pointer phase. Unknown labels
// become PhaseMove.
func NormalizePhase(raw string) model.Phase {
	if phase, ok := phaseAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return phase
	}
	return model.PhaseMove
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClampFinite returns v, or fallback when v is NaN or infinite.
func ClampFinite(v, fallback float64) float64 {
	if !IsFinite(v) {
		return fallback
	}
	return v
}

// Clamp01 clamps v to [0,1]; NaN and infinities become 0.
func Clamp01(v float64) float64 {
	return Clamp01Or(v, 0)
}

// Clamp01Or clamps v to [0,1], substituting fallback for non-finite input.
func Clamp01Or(v, fallback float64) float64 {
	v = ClampFinite(v, fallback)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
