// Package encoding provides text decoding utilities for motion capture file labels.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// LabelToUTF8 converts raw label bytes to a UTF-8 string.
// Valid UTF-8 is returned unchanged; anything else is treated as Windows-1252,
// which is what most capture software writes into C3D parameter blocks.
func LabelToUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoder := charmap.Windows1252.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		// Return as-is if decoding fails
		return string(data)
	}
	return string(result)
}

// CleanLabel decodes a fixed-width label and trims NUL and space padding.
func CleanLabel(data []byte) string {
	// Truncate at first null byte
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	return strings.TrimSpace(LabelToUTF8(data))
}

// SplitLabels splits a fixed-width column of labels into cleaned strings.
// width is the byte length of each label.
func SplitLabels(data []byte, width int) []string {
	if width <= 0 {
		return nil
	}
	labels := make([]string, 0, len(data)/width)
	for off := 0; off+width <= len(data); off += width {
		labels = append(labels, CleanLabel(data[off:off+width]))
	}
	return labels
}
