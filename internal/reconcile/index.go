// Package reconcile decides whether an extracted candidate updates a stored
// file or creates a new one, and performs that write.
package reconcile

import (
	"path"
	"strings"

	"github.com/freewebtopdf/chatfiles/internal/domain"
)

// Strategy identifies which lookup matched a candidate to a stored file
type Strategy string

const (
	StrategyNone      Strategy = ""
	StrategyExactPath Strategy = "exact-path"
	StrategySuffix    Strategy = "path-suffix"
	StrategyShortName Strategy = "short-name"
)

// Index is a read-only view of the files that existed when a batch started.
// It is built once per batch and never refreshed, so files created during the
// batch are invisible to it.
type Index struct {
	files  []domain.File
	byPath map[string]int // normalized Path -> position in files
	byName map[string]int // normalized Name -> position in files
}

// NewIndex builds an Index over a snapshot. When two files share a key the
// first one in snapshot order wins.
func NewIndex(files []domain.File) *Index {
	idx := &Index{
		files:  files,
		byPath: make(map[string]int, len(files)),
		byName: make(map[string]int, len(files)),
	}

	for i, f := range files {
		if key := domain.NormalizeFilename(f.Path); key != "" {
			if _, exists := idx.byPath[key]; !exists {
				idx.byPath[key] = i
			}
		}
		if key := domain.NormalizeFilename(shortName(f)); key != "" {
			if _, exists := idx.byName[key]; !exists {
				idx.byName[key] = i
			}
		}
	}

	return idx
}

// Len returns the number of files in the snapshot
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.files)
}

// Lookup finds the stored file a candidate filename refers to. Strategies run
// in order: exact path, then a stored path ending in "/<name>", then the stored
// short name.
func (idx *Index) Lookup(filename string) (domain.File, Strategy, bool) {
	if idx == nil {
		return domain.File{}, StrategyNone, false
	}
	key := domain.NormalizeFilename(filename)
	if key == "" {
		return domain.File{}, StrategyNone, false
	}

	if i, ok := idx.byPath[key]; ok {
		return idx.files[i], StrategyExactPath, true
	}

	suffix := "/" + key
	for _, f := range idx.files {
		if strings.HasSuffix(domain.NormalizeFilename(f.Path), suffix) {
			return f, StrategySuffix, true
		}
	}

	if i, ok := idx.byName[key]; ok {
		return idx.files[i], StrategyShortName, true
	}

	return domain.File{}, StrategyNone, false
}

func shortName(f domain.File) string {
	if f.Name != "" {
		return f.Name
	}
	return path.Base(strings.ReplaceAll(f.Path, "\\", "/"))
}
