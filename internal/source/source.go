// Package source enumerates and reads the documentation files to ingest.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"doris-rag/internal/domain"
)

// DefaultMaxFileSize is the largest file read during ingestion (4 MB).
const DefaultMaxFileSize int64 = 4 << 20

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".doris-rag":   true,
}

// Options controls which files Walk returns.
type Options struct {
	Root        string
	Include     []string
	Exclude     []string
	MaxFileSize int64
}

// File is a candidate document discovered under the root.
type File struct {
	Path    string // absolute path on disk
	RelPath string // slash-separated path relative to the root, used as the filename
	Size    int64
}

// Walk returns every regular file under opts.Root that matches an include pattern
// and no exclude pattern, sorted by RelPath.
func Walk(ctx context.Context, opts Options) ([]File, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("source: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: %s is not a directory", root)
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !Matches(rel, opts.Include, opts.Exclude) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() > maxSize {
			return nil
		}
		files = append(files, File{Path: path, RelPath: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Matches reports whether relPath is selected by the include patterns and not
// rejected by the exclude patterns. An empty include list selects everything.
func Matches(relPath string, include, exclude []string) bool {
	if len(include) > 0 && !matchesAny(relPath, include) {
		return false
	}
	return !matchesAny(relPath, exclude)
}

func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// Read loads f into a Document. Title is left for the cleaner to derive.
func Read(f File) (domain.Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", f.RelPath, err)
	}
	return domain.Document{Path: f.RelPath, RawText: string(data)}, nil
}

// Hash returns the hex SHA-256 of the document's raw text.
func Hash(doc domain.Document) string {
	sum := sha256.Sum256([]byte(doc.RawText))
	return hex.EncodeToString(sum[:])
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
