package importers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrlokans/weread-sync/internal/services"
)

// LoadSnapshots reads snapshot dumps written during a sync run.
//
// path may be a single .json file or a run directory; files are read in name
// order and non-JSON files are ignored.
func LoadSnapshots(path string) ([]services.BookSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
		}
		files = files[:0]
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
	}

	snapshots := make([]services.BookSnapshot, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var s services.BookSnapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot %s: %w", filepath.Base(f), err)
		}
		if s.BookID() == "" {
			return nil, fmt.Errorf("snapshot %s has no book id", filepath.Base(f))
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}
