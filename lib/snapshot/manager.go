package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emberkv/ember/lib/store"
)

// gracePeriod bounds how long StopPeriodic waits for an in-flight save to
// finish, matching the 5-second constant the spec mandates for both the
// snapshot scheduler and the background sweeper.
const gracePeriod = 5 * time.Second

const filePrefix = "snapshot-"
const fileSuffix = ".bin"

// FailureSink receives errors from periodic saves that would otherwise be
// silently swallowed; the caller typically wires this to a logger.
type FailureSink func(format string, args ...interface{})

// Manager owns a snapshot directory: atomic capture-to-disk, load-latest,
// load-by-path, periodic scheduling, and retention.
type Manager struct {
	dir  string
	sink FailureSink

	mu      sync.Mutex
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewManager creates dir if missing and returns a Manager over it. sink may
// be nil, in which case periodic-save failures are discarded.
func NewManager(dir string, sink FailureSink) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, store.ErrIoError(err)
	}
	if sink == nil {
		sink = func(string, ...interface{}) {}
	}
	return &Manager{dir: dir, sink: sink}, nil
}

// Dir returns the snapshot directory this Manager owns.
func (m *Manager) Dir() string { return m.dir }

// SaveSnapshot captures router's current state and atomically publishes it
// as snapshot-<ts>.bin, returning the final path.
func (m *Manager) SaveSnapshot(router *store.Router) (string, error) {
	ts := time.Now().UnixMilli()
	image := router.CaptureSnapshot(ts)
	data := Encode(image)

	path, err := m.uniquePath(ts)
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", store.ErrIoError(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", store.ErrIoError(err)
	}
	return path, nil
}

// uniquePath returns a snapshot path for ts, appending a monotonic counter
// suffix if a file for that exact millisecond already exists (two captures
// landing in the same millisecond would otherwise collide on rename).
func (m *Manager) uniquePath(ts int64) (string, error) {
	base := filepath.Join(m.dir, fmt.Sprintf("%s%d%s", filePrefix, ts, fileSuffix))
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base, nil
	}
	for n := 1; ; n++ {
		candidate := filepath.Join(m.dir, fmt.Sprintf("%s%d-%d%s", filePrefix, ts, n, fileSuffix))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}

// LoadLatestSnapshot restores router from the most recently modified
// snapshot file in the directory. Returns false if none exists.
func (m *Manager) LoadLatestSnapshot(router *store.Router) (bool, error) {
	files, err := m.listSnapshotFiles()
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, nil
	}
	return m.LoadSnapshot(router, files[0])
}

// LoadSnapshot decodes the file at path and restores router from it.
// Returns false if the file does not exist.
func (m *Manager) LoadSnapshot(router *store.Router, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, store.ErrIoError(err)
	}

	image, err := Decode(data)
	if err != nil {
		return false, err
	}
	if err := router.RestoreSnapshot(image); err != nil {
		return false, err
	}
	return true, nil
}

// StartPeriodic schedules SaveSnapshot at a fixed rate. Starting while
// already running fails with AlreadyRunning. Save failures are passed to
// the failure sink and never stop the schedule. After each successful save,
// CleanupOldSnapshots(retain) prunes the directory down to the retain most
// recent files; retain <= 0 disables pruning.
func (m *Manager) StartPeriodic(router *store.Router, intervalSeconds int, retain int) error {
	if intervalSeconds <= 0 {
		return store.ErrInvalidArgument("intervalSeconds must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.CompareAndSwap(false, true) {
		return store.ErrAlreadyRunning("periodic snapshot")
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.runPeriodic(router, time.Duration(intervalSeconds)*time.Second, retain, m.stopCh, m.doneCh)
	return nil
}

func (m *Manager) runPeriodic(router *store.Router, interval time.Duration, retain int, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := m.SaveSnapshot(router); err != nil {
				m.sink("periodic snapshot save failed: %v", err)
				continue
			}
			if retain > 0 {
				if _, err := m.CleanupOldSnapshots(retain); err != nil {
					m.sink("periodic snapshot cleanup failed: %v", err)
				}
			}
		}
	}
}

// StopPeriodic halts the schedule and waits up to the grace period for the
// in-flight task to finish. Stopping when not running fails with NotRunning.
func (m *Manager) StopPeriodic() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.CompareAndSwap(true, false) {
		return store.ErrNotRunning("periodic snapshot")
	}

	close(m.stopCh)
	select {
	case <-m.doneCh:
	case <-time.After(gracePeriod):
	}
	return nil
}

// CleanupOldSnapshots keeps the keep most-recently-modified snapshot files
// and deletes the rest, returning the delete count.
func (m *Manager) CleanupOldSnapshots(keep int) (int, error) {
	if keep < 0 {
		return 0, store.ErrInvalidArgument("keep must be >= 0")
	}

	files, err := m.listSnapshotFiles()
	if err != nil {
		return 0, err
	}
	if keep >= len(files) {
		return 0, nil
	}

	deleted := 0
	for _, f := range files[keep:] {
		if err := os.Remove(f); err != nil {
			return deleted, store.ErrIoError(err)
		}
		deleted++
	}
	return deleted, nil
}

// listSnapshotFiles returns every "snapshot-*.bin" path in the directory
// (excluding in-progress ".tmp" files), sorted by modification time
// descending (most recent first).
func (m *Manager) listSnapshotFiles() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, store.ErrIoError(err)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(m.dir, name), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}
