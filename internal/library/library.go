// Package library describes the on-disk layout of a pipeline library: the
// process-state directory holding the queue, the lock directory and the raw
// data directory the reconstruction daemon reads from.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	procDirName   = ".proc"
	rawDirName    = "raw"
	queueFileName = "queue"
	historyDBName = "commits.db"
	daemonLogName = "daemon.log"
	daemonPIDName = "daemon.pid"
)

// QueueLockName is the lock every producer and the daemon take before
// touching the queue file.
const QueueLockName = "queue"

// Library is an opened pipeline library root.
type Library struct {
	Root     string
	MutexDir string
}

// Open prepares the library at root, creating the directories the launcher
// and daemon expect. A relative mutexDir is resolved against root.
func Open(root, mutexDir string) (*Library, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("library root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	mutexDir = strings.TrimSpace(mutexDir)
	if mutexDir == "" {
		mutexDir = filepath.Join(procDirName, "mutex")
	}
	if !filepath.IsAbs(mutexDir) {
		mutexDir = filepath.Join(absRoot, mutexDir)
	}

	lib := &Library{Root: absRoot, MutexDir: filepath.Clean(mutexDir)}
	for _, dir := range []string{lib.Root, lib.ProcDir(), lib.MutexDir, lib.RawDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library directory %q: %w", dir, err)
		}
	}
	return lib, nil
}

func (l *Library) ProcDir() string { return filepath.Join(l.Root, procDirName) }

// QueuePath is the queue file consumed by the daemon.
func (l *Library) QueuePath() string { return filepath.Join(l.ProcDir(), queueFileName) }

func (l *Library) HistoryPath() string { return filepath.Join(l.ProcDir(), historyDBName) }

func (l *Library) RawDir() string { return filepath.Join(l.Root, rawDirName) }

func (l *Library) DaemonLogPath() string { return filepath.Join(l.ProcDir(), daemonLogName) }

func (l *Library) DaemonPIDPath() string { return filepath.Join(l.ProcDir(), daemonPIDName) }
