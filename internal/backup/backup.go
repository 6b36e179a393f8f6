package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Keeper makes timestamped copies of the transcript file and prunes old
// ones. Backup file names embed the source base name plus a sortable
// timestamp, e.g. chat_memory_20240102_150405.json.
type Keeper struct {
	dir  string
	keep int

	now func() time.Time // test hook
}

func NewKeeper(dir string, keep int) (*Keeper, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup: empty dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: ensure dir: %w", err)
	}
	if keep < 1 {
		keep = 1
	}
	return &Keeper{dir: dir, keep: keep, now: time.Now}, nil
}

// Backup copies path into the backup dir and prunes to the newest keep
// copies. A missing source file is not an error: there is nothing to back
// up yet.
func (k *Keeper) Backup(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("backup: read source: %w", err)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_%s%s", stem, k.now().Format("20060102_150405"), ext)
	dst := filepath.Join(k.dir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("backup: write %s: %w", dst, err)
	}
	if err := k.prune(stem, ext); err != nil {
		return dst, err
	}
	return dst, nil
}

// Latest returns the newest backup for the given source path, or "" when
// none exist.
func (k *Keeper) Latest(path string) (string, error) {
	names, err := k.list(path)
	if err != nil || len(names) == 0 {
		return "", err
	}
	return filepath.Join(k.dir, names[len(names)-1]), nil
}

// Restore copies the newest backup over path.
func (k *Keeper) Restore(path string) error {
	latest, err := k.Latest(path)
	if err != nil {
		return err
	}
	if latest == "" {
		return fmt.Errorf("backup: no backups for %s", filepath.Base(path))
	}
	data, err := os.ReadFile(latest)
	if err != nil {
		return fmt.Errorf("backup: read %s: %w", latest, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("backup: restore to %s: %w", path, err)
	}
	return nil
}

func (k *Keeper) list(path string) ([]string, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, stem+"_") && strings.HasSuffix(n, ext) {
			names = append(names, n)
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	return names, nil
}

func (k *Keeper) prune(stem, ext string) error {
	names, err := k.list(stem + ext)
	if err != nil {
		return err
	}
	for len(names) > k.keep {
		if err := os.Remove(filepath.Join(k.dir, names[0])); err != nil {
			return fmt.Errorf("backup: prune %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}
