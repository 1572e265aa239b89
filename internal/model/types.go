// Package model defines shared data structures.
package model

// Source is a normalized input device source tag.
type Source string

// Known device sources.
const (
	SourceWintab       Source = "wintab"
	SourceWindowsInk   Source = "windowsink"
	SourceMacNative    Source = "macnative"
	SourcePointerEvent Source = "pointerevent"
	SourceMouse        Source = "mouse"
	SourceTouch        Source = "touch"
)

// Phase is a normalized pointer phase.
type Phase string

// Pointer phases.
const (
	PhaseHover Phase = "hover"
	PhaseDown  Phase = "down"
	PhaseMove  Phase = "move"
	PhaseUp    Phase = "up"
)

// RawInputSample is one hardware input event as delivered by the capture layer.
// Source and Phase keep the raw labels; normalization happens downstream.
type RawInputSample struct {
	XPx          float64 `json:"x_px"`
	YPx          float64 `json:"y_px"`
	Pressure01   float64 `json:"pressure_01"`
	TiltXDeg     float64 `json:"tilt_x_deg"`
	TiltYDeg     float64 `json:"tilt_y_deg"`
	RotationDeg  float64 `json:"rotation_deg"`
	DeviceTimeUs float64 `json:"device_time_us"`
	HostTimeUs   float64 `json:"host_time_us"`
	Source       string  `json:"source"`
	Phase        string  `json:"phase"`
	Seq          *int64  `json:"seq,omitempty"`
}

// PaintInfo is the per-point output of the pipeline.
type PaintInfo struct {
	XPx            float64 `json:"x_px"`
	YPx            float64 `json:"y_px"`
	Pressure01     float64 `json:"pressure_01"`
	DrawingSpeed01 float64 `json:"drawing_speed_01"`
	TimeUs         float64 `json:"time_us"`
}

// CapturedStroke is a recorded sample stream replayed by the gate.
type CapturedStroke struct {
	ID      string           `json:"id"`
	Samples []RawInputSample `json:"samples"`
}
