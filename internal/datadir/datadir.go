// Package datadir implements the Piccolo data directory (spec §4.8): path
// joining, existence/writability checks, optional mount/unmount of
// removable storage, file listing, and the batch counter. The file-scanning
// shape is grounded on the teacher's internal/diskmanager file utilities
// (FileInfo scanning, mtime ordering); mount detection uses gopsutil's
// disk package the way the teacher's disk_usage_unix.go does.
package datadir

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/piccolo2go/piccolo/internal/logging"
	"github.com/piccolo2go/piccolo/internal/perrors"
)

var batchFilePattern = regexp.MustCompile(`^b(\d{6})_s\d{6}\.pico`)

// Dir is the single-method interface to the output root named in spec §4.8.
type Dir struct {
	root       string
	device     string
	mountPoint string
	mount      bool
	mounted    bool
	logger     *slog.Logger
}

// New creates a Dir rooted at root. device/mountPoint/mount configure the
// optional removable-storage mount step; mount=false makes Mount/Umount
// no-ops, matching platforms without removable storage.
func New(root, device, mountPoint string, mount bool) *Dir {
	return &Dir{root: root, device: device, mountPoint: mountPoint, mount: mount, logger: logging.ForService("datadir")}
}

// Join returns a path under the data directory root.
func (d *Dir) Join(relpath string) string {
	return filepath.Join(d.root, relpath)
}

// Datadir ensures the root directory exists and is writable, returning a
// fatal-category error (spec §7f) if it cannot be created or written to.
func (d *Dir) Datadir() (string, error) {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", perrors.New(err).Category(perrors.CategoryFatal).
			Context("path", d.root).Build()
	}
	probe := filepath.Join(d.root, ".piccolo-write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return "", perrors.New(err).Category(perrors.CategoryFatal).
			Context("path", d.root).Build()
	}
	f.Close()
	os.Remove(probe)
	return d.root, nil
}

// IsMounted reports whether the configured mount point currently has a
// filesystem mounted on it. Always true when mount=false.
func (d *Dir) IsMounted() bool {
	if !d.mount {
		return true
	}
	partitions, err := disk.Partitions(true)
	if err != nil {
		return d.mounted
	}
	for _, p := range partitions {
		if p.Mountpoint == d.mountPoint {
			return true
		}
	}
	return false
}

// Mount is a no-op unless mount=true. It does not invoke the platform mount
// utility: it only verifies and records whether the target is already
// mounted, logging a warning and returning an error otherwise.
func (d *Dir) Mount() error {
	if !d.mount {
		return nil
	}
	if d.IsMounted() {
		d.mounted = true
		return nil
	}
	if d.logger != nil {
		d.logger.Warn("data directory mount point is not mounted", "mountpoint", d.mountPoint, "device", d.device)
	}
	return fmt.Errorf("mount point %s is not mounted", d.mountPoint)
}

// Umount is a no-op unless mount=true, in which case it only clears the
// recorded mounted flag; it does not unmount anything.
func (d *Dir) Umount() error {
	if !d.mount {
		return nil
	}
	d.mounted = false
	return nil
}

// FileEntry is one result of GetFileList.
type FileEntry struct {
	Path    string
	ModTime int64
}

// GetFileList returns files under sub matching the shell pattern, sorted
// mtime-ascending, skipping the first skip entries.
func (d *Dir) GetFileList(sub, pattern string, skip int) ([]FileEntry, error) {
	dirPath := filepath.Join(d.root, sub)
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []FileEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matched, err := filepath.Match(pattern, e.Name())
		if err != nil || !matched {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileEntry{Path: filepath.Join(dirPath, e.Name()), ModTime: info.ModTime().UnixNano()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ModTime < out[j].ModTime })

	if skip >= len(out) {
		return nil, nil
	}
	return out[skip:], nil
}

// GetNextCounter scans sub for files matching b{N:06d}_s{S:06d}.pico* and
// returns max(N)+1, or 0 if none exist (spec §3 "Batch counter").
func (d *Dir) GetNextCounter(sub string) (int, error) {
	dirPath := filepath.Join(d.root, sub)
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	maxBatch := -1
	for _, e := range entries {
		m := batchFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxBatch {
			maxBatch = n
		}
	}
	return maxBatch + 1, nil
}

// GetFileData reads the full content of a file under the data directory.
func (d *Dir) GetFileData(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, rel))
}
