// Package export writes the current product specification to a JSON file.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tableflip.dev/procure/pkg/message"
)

// ErrNoSpecification is returned when there is nothing to export.
var ErrNoSpecification = errors.New("export: no product specification to export")

// Document is the exported file body.
type Document struct {
	message.ProductSpecification
	Timestamp string `json:"timestamp"`
}

// Export writes specifications into Dir.
type Export struct {
	Dir string
	// Now defaults to time.Now.
	Now func() time.Time
}

// FileName is spec-<safe name>-<unix millis>.json.
func FileName(spec *message.ProductSpecification, at time.Time) string {
	return fmt.Sprintf("spec-%s-%d.json", spec.SafeName(), at.UnixMilli())
}

// Do writes spec and returns the path of the new file.
func (e *Export) Do(spec *message.ProductSpecification) (string, error) {
	if spec == nil {
		return "", ErrNoSpecification
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	at := now()

	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	data, err := json.MarshalIndent(Document{
		ProductSpecification: *spec.Clone(),
		Timestamp:            message.FormatTime(at),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	path := filepath.Join(dir, FileName(spec, at))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}
