// Package files keeps JSON documents in the controller's data directory.
package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrBadName  = errors.New("file name escapes the data directory")
)

// Entry is one listed file.
type Entry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Dir is a flat document store rooted at a directory.
type Dir struct {
	root string
}

// Open creates root if needed.
func Open(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string { return d.root }

// List returns the files whose name contains match, sorted by name. An
// empty match lists everything.
func (d *Dir) List(match string) ([]Entry, error) {
	des, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.root, err)
	}
	var out []Entry
	for _, de := range des {
		if de.IsDir() || !strings.Contains(de.Name(), match) || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: de.Name(), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// NameForIndex returns the n-th name List(match) would return.
func (d *Dir) NameForIndex(n int, match string) (string, bool) {
	list, err := d.List(match)
	if err != nil || n < 0 || n >= len(list) {
		return "", false
	}
	return list[n].Name, true
}

// ReadDocument decodes the JSON file name into v.
func (d *Dir) ReadDocument(name string, v any) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// WriteDocument encodes v as JSON into name, replacing it atomically.
func (d *Dir) WriteDocument(name string, v any) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), p)
}

// Remove deletes name.
func (d *Dir) Remove(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, ErrNotFound)
	} else if err != nil {
		return err
	}
	return nil
}

// UsedBytes sums the size of every file.
func (d *Dir) UsedBytes() int64 {
	list, err := d.List("")
	if err != nil {
		return 0
	}
	var n int64
	for _, e := range list {
		n += e.Size
	}
	return n
}

// path maps "/name" or "name" into the root. Only flat names are allowed.
func (d *Dir) path(name string) (string, error) {
	n := strings.TrimPrefix(name, "/")
	if n == "" || n == "." || n == ".." || filepath.Base(n) != n {
		return "", fmt.Errorf("%q: %w", name, ErrBadName)
	}
	return filepath.Join(d.root, n), nil
}
