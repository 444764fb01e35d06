package storage

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// scannedFile is a regular file found under the store root
type scannedFile struct {
	Path string // slash-separated, relative to the root
	Info fs.FileInfo
}

// scanDirectory walks root and returns every regular file outside the
// metadata directory. Unreadable entries are skipped.
func scanDirectory(ctx context.Context, root string) ([]scannedFile, error) {
	var files []scannedFile

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if p == root {
				return err
			}
			return nil
		}

		if d.IsDir() {
			if p != root && d.Name() == metaDirName {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || isTempFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		files = append(files, scannedFile{Path: filepath.ToSlash(rel), Info: info})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".chatfiles-") && strings.HasSuffix(name, ".tmp")
}
