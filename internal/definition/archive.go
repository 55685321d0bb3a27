// MQTT File RBAC - File-based access control for MQTT brokers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mqtt-file-rbac

package definition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveTimeLayout names archived files; it sorts chronologically.
const ArchiveTimeLayout = "20060102-15-04-05"

// archiveSuffix is appended to the timestamp of every archived definition.
const archiveSuffix = "-credentials.xml"

// Archiver keeps copies of definitions that were replaced by a newer one.
type Archiver struct {
	dir string
	now func() time.Time
}

// NewArchiver returns an Archiver writing into dir, which is created on
// first use.
func NewArchiver(dir string) *Archiver {
	return &Archiver{dir: dir, now: time.Now}
}

// Dir returns the archive directory.
func (a *Archiver) Dir() string {
	return a.dir
}

// Archive writes raw to a timestamped file and returns its path. An
// existing file for the same second is never overwritten.
func (a *Archiver) Archive(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("archive: empty definition")
	}
	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return "", fmt.Errorf("archive: create directory: %w", err)
	}

	base := a.now().Format(ArchiveTimeLayout)
	name := filepath.Join(a.dir, base+archiveSuffix)
	for i := 1; ; i++ {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			name = filepath.Join(a.dir, fmt.Sprintf("%s.%d%s", base, i, archiveSuffix))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("archive: %w", err)
		}
		if _, err := f.Write(raw); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("archive: write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("archive: close %s: %w", name, err)
		}
		return name, nil
	}
}
