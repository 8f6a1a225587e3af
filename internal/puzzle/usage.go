package puzzle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// usageRecordVersion is bumped when the on-disk format changes so future
// loads can detect and migrate old records.
const usageRecordVersion = 1

// usageRecord is the serialized form of a namespace's used-puzzle set.
type usageRecord struct {
	Version int      `json:"version"`
	Used    []string `json:"used"`
}

// usageFile persists the set of served puzzle IDs for one namespace. Writes
// are atomic: the record is written to a temp file in the same directory and
// renamed over the previous one, so a crash never leaves a half-written file.
type usageFile struct {
	path string
}

func newUsageFile(dataDir, namespace string) *usageFile {
	return &usageFile{path: filepath.Join(dataDir, namespace+"_usage.json")}
}

// load reads the used-ID set from disk. A missing or unreadable record is
// never fatal: it degrades to an empty set and logs the condition.
func (f *usageFile) load() map[string]struct{} {
	used := make(map[string]struct{})

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return used
	}
	if err != nil {
		slog.Warn("Usage record unreadable, starting with empty record", "path", f.path, "error", err)
		return used
	}

	var rec usageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Warn("Usage record corrupt, starting with empty record", "path", f.path, "error", err)
		return used
	}
	if rec.Version != usageRecordVersion {
		slog.Warn("Usage record has unknown version, starting with empty record",
			"path", f.path, "version", rec.Version)
		return used
	}

	for _, id := range rec.Used {
		used[id] = struct{}{}
	}
	return used
}

// save writes the used-ID set atomically.
func (f *usageFile) save(used map[string]struct{}) error {
	ids := make([]string, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(usageRecord{Version: usageRecordVersion, Used: ids}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal usage record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create usage record directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".usage-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp usage record: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp usage record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp usage record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp usage record: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace usage record: %w", err)
	}
	return nil
}
