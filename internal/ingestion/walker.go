// Package ingestion builds the supply graph from a directory of JSON data
// files and keeps it current.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFile holds gitignore-style patterns excluded from ingestion.
const IgnoreFile = ".prophetignore"

// DataFile represents a data file to be ingested.
type DataFile struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the data directory.
	RelPath string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Default patterns to ignore (in addition to .prophetignore).
var defaultIgnorePatterns = []string{
	".git/",
	".prophet/",
	"node_modules/",
	".DS_Store",
}

// WalkData walks the data directory and returns every JSON file not
// matched by patterns, in lexical order.
func WalkData(dataDir string, patterns []gitignore.Pattern) ([]DataFile, error) {
	var files []DataFile
	matcher := newMatcher(patterns)

	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dataDir && shouldSkipDir(path, dataDir, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isDataFile(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hash := sha256.Sum256(content)

		files = append(files, DataFile{
			Path:    path,
			RelPath: relPath,
			Content: content,
			SHA256:  hex.EncodeToString(hash[:]),
		})
		return nil
	})

	return files, err
}

func newMatcher(patterns []gitignore.Pattern) gitignore.Matcher {
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(append(all, patterns...))
}

// LoadIgnore loads .prophetignore patterns from the data directory root.
// A missing file yields no patterns.
func LoadIgnore(dataDir string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(dataDir, IgnoreFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// isDataFile checks if a file is a JSON data file.
func isDataFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(path, dataDir string, matcher gitignore.Matcher) bool {
	relPath, err := filepath.Rel(dataDir, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
