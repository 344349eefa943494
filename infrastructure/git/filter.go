package git

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// FileFilter decides which blobs feed the indexing pipeline. Folder, name,
// and extension exclusions are compiled into glob patterns; include
// extensions override every exclusion; oversized and binary blobs are
// always dropped.
type FileFilter struct {
	excludes     []glob.Glob
	includeExts  map[string]struct{}
	maxFileBytes int64
}

// NewFileFilter compiles exclusion patterns. Folders become "**/name/**",
// file names "**/name", and extensions "**/*.ext".
func NewFileFilter(folders, names, extensions, includeExtensions []string, maxFileBytes int64) (FileFilter, error) {
	f := FileFilter{
		includeExts:  make(map[string]struct{}, len(includeExtensions)),
		maxFileBytes: maxFileBytes,
	}

	var patterns []string
	for _, folder := range folders {
		patterns = append(patterns, "**/"+folder+"/**", folder+"/**")
	}
	for _, name := range names {
		patterns = append(patterns, "**/"+name, name)
	}
	for _, ext := range extensions {
		patterns = append(patterns, "**/*"+ext, "*"+ext)
	}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return FileFilter{}, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		f.excludes = append(f.excludes, g)
	}

	for _, ext := range includeExtensions {
		f.includeExts[strings.ToLower(ext)] = struct{}{}
	}

	return f, nil
}

// Admit reports whether a blob at the given path and size should be indexed.
func (f FileFilter) Admit(filePath string, size int64) bool {
	if f.maxFileBytes > 0 && size > f.maxFileBytes {
		return false
	}

	ext := strings.ToLower(path.Ext(filePath))
	if _, forced := f.includeExts[ext]; forced {
		return true
	}

	normalized := strings.TrimPrefix(filePath, "/")
	for _, g := range f.excludes {
		if g.Match(normalized) {
			return false
		}
	}
	return true
}

// looksBinary sniffs the first bytes of content for NUL, the same heuristic
// git itself uses for textconv decisions.
func looksBinary(content []byte) bool {
	probe := content
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
