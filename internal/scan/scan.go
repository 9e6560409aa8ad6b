// Package scan discovers the regular files to upload under a local path.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrEmptyDirectory is returned when a directory root contains no regular files.
var ErrEmptyDirectory = errors.New("empty directory")

// EnumerationError reports a path that could not be read during the walk.
type EnumerationError struct {
	Path string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s: %v", e.Path, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// Result is the discovered file set.
type Result struct {
	Root  string
	IsDir bool
	Files []string
}

// Files lists every regular file reachable from root. A regular file root
// yields itself and must be readable. Symlinks are followed, so a directory reached through an
// alias is listed under every path that reaches it; a directory is never
// re-entered from inside itself. Non-regular files are ignored and broken
// symlinks are skipped.
func Files(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &EnumerationError{Path: root, Err: err}
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, &EnumerationError{Path: root, Err: fmt.Errorf("not a regular file (%s)", info.Mode().Type())}
		}
		// A lone file that cannot be read fails the run before any upload.
		f, err := os.Open(root)
		if err != nil {
			return nil, &EnumerationError{Path: root, Err: err}
		}
		_ = f.Close()
		return &Result{Root: root, Files: []string{root}}, nil
	}

	w := &walker{}
	if err := w.walk(root, info); err != nil {
		return nil, err
	}
	if len(w.files) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrEmptyDirectory)
	}

	return &Result{Root: root, IsDir: true, Files: w.files}, nil
}

type walker struct {
	// ancestors holds the directories on the current path, root first.
	ancestors []fs.FileInfo
	files     []string
}

func (w *walker) walk(dir string, info fs.FileInfo) error {
	for _, anc := range w.ancestors {
		if os.SameFile(anc, info) {
			return nil
		}
	}
	w.ancestors = append(w.ancestors, info)
	defer func() { w.ancestors = w.ancestors[:len(w.ancestors)-1] }()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &EnumerationError{Path: dir, Err: err}
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		fi, err := os.Stat(path)
		if err != nil {
			if entry.Type()&fs.ModeSymlink != 0 && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &EnumerationError{Path: path, Err: err}
		}

		switch {
		case fi.IsDir():
			if err := w.walk(path, fi); err != nil {
				return err
			}
		case fi.Mode().IsRegular():
			w.files = append(w.files, path)
		}
	}

	return nil
}
