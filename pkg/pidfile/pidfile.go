package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PIDFile holds the pid file of a running probe server. An empty path
// turns Acquire and Release into no-ops.
type PIDFile struct {
	path string
	file *os.File
}

func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

func (f *PIDFile) Path() string {
	return f.path
}

// Acquire creates the pid file. A stale file left behind by a process that
// no longer runs is replaced; a file owned by a live process is an error.
func (f *PIDFile) Acquire() error {
	if f.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create pid file directory %q", filepath.Dir(f.path))
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if os.IsExist(err) {
			if err := f.removeIfStale(); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "failed to open pid file %q", f.path)
		}

		if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
			_ = file.Close()
			return errors.Wrapf(err, "failed to write pid to pid file %q", f.path)
		}

		f.file = file
		log.WithField("path", f.path).Info("acquired pid file")
		return nil
	}

	return fmt.Errorf("pid file %q was recreated while acquiring it", f.path)
}

func (f *PIDFile) removeIfStale() error {
	contents, err := os.ReadFile(f.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read pid file %q", f.path)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return errors.Wrapf(err, "failed to parse pid file %q", f.path)
	}

	if process, err := os.FindProcess(pid); err == nil {
		if err := process.Signal(syscall.Signal(0)); err == nil {
			return fmt.Errorf("pid file %q already exists and contains the PID of a running process", f.path)
		}
	}

	log.WithField("path", f.path).Info("existing pid file contains the PID of a non-running process; removing it")

	if err := os.Remove(f.path); err != nil {
		return errors.Wrapf(err, "failed to remove pid file %q", f.path)
	}
	return nil
}

func (f *PIDFile) Release() error {
	if f.path == "" || f.file == nil {
		return nil
	}

	if err := f.file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close pid file %q", f.path)
	}
	f.file = nil

	if err := os.Remove(f.path); err != nil {
		return errors.Wrapf(err, "failed to remove pid file %q", f.path)
	}

	log.WithField("path", f.path).Info("released pid file")
	return nil
}
