// Package capture reads and writes captured stroke files.
//
// Two layouts are accepted: a single JSON document holding a CapturedStroke,
// and JSON Lines with one RawInputSample per line. Blank lines and lines
// starting with '#' are ignored in JSON Lines files.
package capture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/penpipe/internal/model"
)

const maxLineBytes = 1 << 20

// LoadStroke reads a capture file. The stroke id defaults to the file name
// without extension when the file does not carry one.
func LoadStroke(path string) (model.CapturedStroke, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.CapturedStroke{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only capture.
			_ = cerr
		}
	}()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stroke, err := ReadStroke(file, name)
	if err != nil {
		return model.CapturedStroke{}, fmt.Errorf("failed to read capture %s: %w", path, err)
	}
	return stroke, nil
}

// ReadStroke decodes a capture from r, detecting the layout from its first
// non-blank byte and the presence of a "samples" key.
func ReadStroke(r io.Reader, defaultID string) (model.CapturedStroke, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.CapturedStroke{}, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return model.CapturedStroke{}, fmt.Errorf("capture is empty")
	}

	var stroke model.CapturedStroke
	if isDocument(trimmed) {
		if err := json.Unmarshal(trimmed, &stroke); err != nil {
			return model.CapturedStroke{}, fmt.Errorf("failed to decode capture: %w", err)
		}
	} else {
		samples, err := readLines(trimmed)
		if err != nil {
			return model.CapturedStroke{}, err
		}
		stroke.Samples = samples
	}
	if stroke.ID == "" {
		stroke.ID = defaultID
	}
	if len(stroke.Samples) == 0 {
		return model.CapturedStroke{}, fmt.Errorf("capture has no samples")
	}
	return stroke, nil
}

func isDocument(data []byte) bool {
	if data[0] != '{' {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe["samples"]
	return ok
}

func readLines(data []byte) ([]model.RawInputSample, error) {
	var samples []model.RawInputSample
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var s model.RawInputSample
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// WriteStroke stores stroke as an indented JSON document, replacing path
// atomically.
func WriteStroke(path string, stroke model.CapturedStroke) error {
	data, err := json.MarshalIndent(stroke, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// WriteJSON stores v as indented JSON at path, replacing it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmpFile, err := os.CreateTemp(dir, ".penpipe-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
