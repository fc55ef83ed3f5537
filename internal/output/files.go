package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"PatternSentinel/internal/model"
)

// CategoryFiles keeps one text file per category, named after the category
// label. Each matched security adds a "<code> <name>" line. Files are
// truncated when opened unless appending was asked for, and files still
// empty at Close are removed.
type CategoryFiles struct {
	dir string

	mu     sync.Mutex
	files  map[model.Category]*os.File
	counts map[model.Category]int
}

// NewCategoryFiles opens the files of cats under dir for one run. Previous
// contents are discarded unless appendMode is set. NoMatch never gets a file.
func NewCategoryFiles(dir string, cats []model.Category, appendMode bool) (*CategoryFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	cf := &CategoryFiles{
		dir:    dir,
		files:  make(map[model.Category]*os.File, len(cats)),
		counts: make(map[model.Category]int, len(cats)),
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	for _, c := range cats {
		if c == model.NoMatch {
			continue
		}
		if _, ok := cf.files[c]; ok {
			continue
		}
		f, err := os.OpenFile(cf.Path(c), flags, 0o644)
		if err != nil {
			cf.Close()
			return nil, fmt.Errorf("open %s: %w", c.Label(), err)
		}
		cf.files[c] = f
	}
	return cf, nil
}

// Path returns the file path of a category.
func (cf *CategoryFiles) Path(c model.Category) string {
	return filepath.Join(cf.dir, c.Label()+".txt")
}

// Write adds the security to the file of every category it matched.
// Categories without an open file are skipped.
func (cf *CategoryFiles) Write(code, name string, r model.Result) error {
	if r.IsNoMatch() {
		return nil
	}
	line := code + " " + name + "\n"

	cf.mu.Lock()
	defer cf.mu.Unlock()
	for _, c := range r.Categories() {
		f, ok := cf.files[c]
		if !ok {
			continue
		}
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("write %s: %w", c.Label(), err)
		}
		cf.counts[c]++
	}
	return nil
}

// Counts returns the lines written per category during this run.
func (cf *CategoryFiles) Counts() map[model.Category]int {
	cf.mu.Lock()
	defer cf.mu.Unlock()
	out := make(map[model.Category]int, len(cf.counts))
	for c, n := range cf.counts {
		out[c] = n
	}
	return out
}

// Close closes every file and deletes the empty ones.
func (cf *CategoryFiles) Close() error {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	var first error
	for c, f := range cf.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(cf.files, c)
		path := cf.Path(c)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			if err := os.Remove(path); err != nil && first == nil {
				first = fmt.Errorf("remove empty %s: %w", path, err)
			}
		}
	}
	return first
}
