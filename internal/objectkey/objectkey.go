// Package objectkey maps local file paths to remote object keys and
// builds download links for uploaded objects.
package objectkey

import (
	"path/filepath"
	"strings"
)

// DefaultNamespace prefixes keys when no object name or destination prefix is given.
const DefaultNamespace = "uploads"

// Single returns the key for a single-file upload: objectName verbatim when
// set, uploads/<basename> otherwise.
func Single(path, objectName string) string {
	if objectName != "" {
		return objectName
	}
	return DefaultNamespace + "/" + filepath.Base(path)
}

// Deriver computes keys for files discovered under Root.
//
// With a Prefix the key is <prefix>/<root name>/<path relative to root>, so
// the root directory's own name namespaces the upload. Without one it is
// uploads/<local path>. Keys are always passed through Normalize.
type Deriver struct {
	Root      string
	Prefix    string
	Lowercase bool
}

// Key returns the object key for path, which must be Root or below it.
func (d Deriver) Key(path string) string {
	var key string
	if d.Prefix != "" {
		prefix := strings.TrimPrefix(d.Prefix, "/")
		prefix = strings.TrimSuffix(prefix, "/")

		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			rel = path
		}
		key = prefix + "/" + rootName(d.Root) + "/" + filepath.ToSlash(rel)
	} else {
		key = DefaultNamespace + "/" + filepath.ToSlash(path)
	}

	return Normalize(key, d.Lowercase)
}

// Normalize collapses runs of "/" into one, drops a leading "/" and
// optionally lower-cases the key. Normalize(Normalize(k)) == Normalize(k).
func Normalize(key string, lowercase bool) string {
	var b strings.Builder
	b.Grow(len(key))

	prevSlash := true // drops the leading separator
	for _, r := range key {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if lowercase {
		out = strings.ToLower(out)
	}
	return out
}

func rootName(root string) string {
	name := filepath.Base(root)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		if abs, err := filepath.Abs(root); err == nil {
			name = filepath.Base(abs)
		}
	}
	return name
}
