package output

import (
	"fmt"
	"os"
	"path/filepath"

	"netmap/scanner"
)

// WriteReportFile writes the plain-text report to path atomically.
func WriteReportFile(path string, rep *scanner.Report) error {
	return WriteAtomic(path, []byte(Text(rep)+"\n"))
}

// WriteAtomic writes data to path atomically:
//   - create temp file in same directory
//   - write bytes, fsync, close
//   - rename to final path (overwrite)
//
// On failure the temp file is removed and an error returned.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "netmap-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", step, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	// rename is atomic on POSIX
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp -> final: %w", err)
	}
	return nil
}
