package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "turnstilecli/internal/errors"
)

// WriteJSON writes v as indented JSON to path
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return apperrors.NewStorageError("write "+filepath.Base(path), err).WithContext("path", path)
	}
	return nil
}
