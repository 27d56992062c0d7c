package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

// NewRunID returns a fresh identifier for one sync run.
func NewRunID() string {
	return uuid.NewString()
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Auditor dumps raw WeRead responses to disk so a failed sync can be replayed.
type Auditor struct {
	AuditDir string
}

func NewAuditor(auditDir string) *Auditor {
	return &Auditor{
		AuditDir: auditDir,
	}
}

// SaveRunJSON saves data under a per-run directory, e.g. <dir>/<runID>/<name>.json.
func (a *Auditor) SaveRunJSON(runID, name string, data any) (string, error) {
	if runID == "" {
		runID = NewRunID()
	}
	filename := unsafeNameChars.ReplaceAllString(name, "_") + ".json"
	path, err := a.write(filepath.Join(a.AuditDir, runID), filename, data)
	if err != nil {
		return "", err
	}
	return filepath.Join(runID, path), nil
}

func (a *Auditor) write(dir, filename string, data any) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", fmt.Errorf("failed to ensure audit directory: %w", err)
	}

	target := filepath.Join(dir, filename)
	log.Printf("Saving audit file: %s", target)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	if err := os.WriteFile(target, jsonData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit file: %w", err)
	}

	return filename, nil
}

// ensureDir creates the audit directory if it doesn't exist
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return nil
}
