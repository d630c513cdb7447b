// Package output writes generated tables to disk without ever leaving a
// partially written file behind.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/akedrou/textdiff"
)

// ExistsError is returned when the target exists and overwriting was not
// requested.
type ExistsError struct {
	Path string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("%s already exists, use --force-write to overwrite it", e.Path)
}

// WriteFile stores data at path. The content is first written to a
// temporary file in the target directory and then moved into place. Unless
// force is set the target must not exist yet.
func WriteFile(path string, data []byte, force bool) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if force {
		return os.Rename(tmp.Name(), path)
	}

	// Link fails if the target exists, which makes the check and the write
	// one step.
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &ExistsError{Path: path}
		}
		return err
	}
	return os.Remove(tmp.Name())
}

// Diff returns a unified diff from the current content of path to data. A
// missing file diffs as empty.
func Diff(path string, data []byte) (string, error) {
	old, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return textdiff.Unified(path, path, string(old), string(data)), nil
}
