package visual

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"golang.org/x/sys/unix"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another visual regression run is in progress")

// lockAttempts bounds retries when the lock file is replaced between open and
// lock.
const lockAttempts = 3

var (
	lockLog = grovelogging.NewLogger("grove-assets.lock")

	// heldLocks maps lock paths to the descriptors carrying their flock. The
	// lock is released when the descriptor is closed or the process exits.
	heldMu    sync.Mutex
	heldLocks = make(map[string]*os.File)
)

// lockFileName returns the path of the lock guarding a run config path.
func lockFileName(configPath string) string {
	return configPath + ".lock"
}

// CreateLockFile takes the run lock for configPath and writes pid into it.
// The lock is an exclusive flock on the file, so a lock file left behind by a
// process that died is taken over without a liveness check.
func CreateLockFile(configPath string, pid int) error {
	lockFile := lockFileName(configPath)
	for attempt := 0; attempt < lockAttempts; attempt++ {
		f, err := os.OpenFile(lockFile, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return fmt.Errorf("create lock file: %w", err)
		}

		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			f.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				holder, _ := ReadLockFile(configPath)
				return fmt.Errorf("%w (pid %d, lock %s)", ErrRunInProgress, holder, lockFile)
			}
			return fmt.Errorf("lock %s: %w", lockFile, err)
		}

		// The previous holder may have removed the file between our open and
		// flock; a lock on an unlinked file guards nothing.
		if !samePath(f, lockFile) {
			f.Close()
			continue
		}

		if previous, err := readPID(f); err == nil && previous != pid {
			lockLog.WithField("pid", previous).WithField("lock", lockFile).Warn("Replacing stale run lock")
		}
		if err := writePID(f, pid); err != nil {
			f.Close()
			return fmt.Errorf("write lock file: %w", err)
		}

		heldMu.Lock()
		heldLocks[lockFile] = f
		heldMu.Unlock()
		return nil
	}
	return fmt.Errorf("%w (lock %s)", ErrRunInProgress, lockFile)
}

// RemoveLockFile deletes the run lock and releases it.
func RemoveLockFile(configPath string) error {
	lockFile := lockFileName(configPath)

	heldMu.Lock()
	f := heldLocks[lockFile]
	delete(heldLocks, lockFile)
	heldMu.Unlock()

	// Unlink before unlocking so no waiter locks the old file.
	err := os.Remove(lockFile)
	if f != nil {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	// It's not an error if the file doesn't exist.
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReadLockFile reads the PID from the run lock.
func ReadLockFile(configPath string) (int, error) {
	content, err := os.ReadFile(lockFileName(configPath))
	if err != nil {
		return 0, err
	}
	return parsePID(content)
}

func parsePID(content []byte) (int, error) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in lock file: %w", err)
	}
	return pid, nil
}

func readPID(f *os.File) (int, error) {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if n == 0 {
		if err == nil {
			err = errors.New("empty lock file")
		}
		return 0, err
	}
	return parsePID(buf[:n])
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(strconv.Itoa(pid)), 0)
	return err
}

func samePath(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}
