package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/penpipe/internal/model"
)

// Canonicalize renders v in a stable textual form: object keys are sorted
// recursively, arrays keep their order, floats use the shortest round-trip
// representation and non-finite floats become tagged strings. Values that
// are not one of the JSON-like Go types are rendered with %v.
func Canonicalize(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

// Hash returns the hex sha256 of the canonical form of v.
func Hash(v any) string {
	sum := sha256.Sum256([]byte(Canonicalize(v)))
	return hex.EncodeToString(sum[:])
}

// HashStroke hashes a captured stroke independently of field order.
func HashStroke(stroke model.CapturedStroke) string {
	return Hash(strokeValue(stroke))
}

// HashJSON hashes a raw JSON document so that documents differing only in
// key order or whitespace hash identically.
func HashJSON(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("failed to decode json: %w", err)
	}
	return Hash(v), nil
}

func strokeValue(stroke model.CapturedStroke) map[string]any {
	samples := make([]any, len(stroke.Samples))
	for i, s := range stroke.Samples {
		m := map[string]any{
			"x_px":           s.XPx,
			"y_px":           s.YPx,
			"pressure_01":    s.Pressure01,
			"tilt_x_deg":     s.TiltXDeg,
			"tilt_y_deg":     s.TiltYDeg,
			"rotation_deg":   s.RotationDeg,
			"device_time_us": s.DeviceTimeUs,
			"host_time_us":   s.HostTimeUs,
			"source":         s.Source,
			"phase":          s.Phase,
		}
		if s.Seq != nil {
			m["seq"] = *s.Seq
		}
		samples[i] = m
	}
	return map[string]any{
		"id":      stroke.ID,
		"samples": samples,
	}
}

func writeCanonical(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case string:
		b.WriteString(strconv.Quote(val))
	case float64:
		writeFloat(b, val)
	case float32:
		writeFloat(b, float64(val))
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			writeFloat(b, f)
		} else {
			b.WriteString(strconv.Quote(val.String()))
		}
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')
	default:
		b.WriteString(strconv.Quote(fmt.Sprintf("%v", val)))
	}
}

func writeFloat(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		b.WriteString(`"+Inf"`)
	case math.IsInf(f, -1):
		b.WriteString(`"-Inf"`)
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}
