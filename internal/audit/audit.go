package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Reports writes import reports as JSON files so the full list of skipped
// rows survives beyond the HTTP response.
type Reports struct {
	Dir string
}

func NewReports(dir string) *Reports {
	return &Reports{Dir: dir}
}

// Save writes data to <name>.json. An empty name gets a random UUID.
func (r *Reports) Save(name string, data any) (string, error) {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if name == "" {
		name = uuid.NewString()
	}
	filename := filepath.Base(name) + ".json"
	path := filepath.Join(r.Dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	log.Printf("[IMPORT] Saved report %s", path)
	return filename, nil
}
