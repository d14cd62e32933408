// Package walker discovers document files from paths, directories and
// glob patterns.
package walker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/docqa/docqa/internal/extract"
)

// DefaultMaxFileSize is the maximum file size to process (64 MB).
const DefaultMaxFileSize int64 = 64 << 20

// FileInfo holds metadata about a single discovered document file.
type FileInfo struct {
	Path string // Absolute path on disk.
	Name string // Base name, used as the document display name.
	Size int64  // File size in bytes.
}

// Config controls the behaviour of Discover.
type Config struct {
	Include     []string // Glob patterns — only matching files are included.
	Exclude     []string // Glob patterns — matching files are excluded.
	MaxFileSize int64    // Files larger than this are skipped (0 = use default).
}

// Discover resolves each argument to document files. An argument may be
// a file path, a directory (walked recursively for supported formats)
// or a glob pattern (doublestar ** syntax). Explicitly named files are
// returned even when their extension is unsupported, so ingestion can
// report the failure on the document itself. Results are deduplicated
// and sorted by path.
func Discover(args []string, config Config) ([]FileInfo, error) {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	seen := make(map[string]FileInfo)

	for _, arg := range args {
		if isGlobPattern(arg) {
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("walker: bad pattern %q: %w", arg, err)
			}
			for _, match := range matches {
				if err := collectPath(match, config, maxSize, false, seen); err != nil {
					return nil, err
				}
			}
			continue
		}

		if err := collectPath(arg, config, maxSize, true, seen); err != nil {
			return nil, err
		}
	}

	files := make([]FileInfo, 0, len(seen))
	for _, f := range seen {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// collectPath adds a single file or a directory subtree to seen.
// explicit marks arguments the user named directly: those must exist
// and bypass the extension filter.
func collectPath(path string, config Config, maxSize int64, explicit bool, seen map[string]FileInfo) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("walker: resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if explicit {
			return fmt.Errorf("walker: %s: %w", path, err)
		}
		return nil
	}

	if info.IsDir() {
		return walkDir(abs, config, maxSize, seen)
	}

	if explicit {
		if info.Size() > maxSize {
			return fmt.Errorf("walker: %s: file exceeds size limit (%d bytes)", path, maxSize)
		}
		seen[abs] = FileInfo{Path: abs, Name: filepath.Base(abs), Size: info.Size()}
		return nil
	}

	if keepFile(abs, filepath.Base(abs), info.Size(), config, maxSize) {
		seen[abs] = FileInfo{Path: abs, Name: filepath.Base(abs), Size: info.Size()}
	}
	return nil
}

// walkDir traverses a directory tree collecting supported documents.
func walkDir(root string, config Config, maxSize int64, seen map[string]FileInfo) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if !MatchesInclude(relPath, config.Include) {
			return nil
		}
		if MatchesExclude(relPath, config.Exclude) {
			return nil
		}

		if keepFile(path, d.Name(), info.Size(), config, maxSize) {
			seen[path] = FileInfo{Path: path, Name: d.Name(), Size: info.Size()}
		}
		return nil
	})
}

// keepFile applies the shared filters for non-explicit files.
func keepFile(path, name string, size int64, config Config, maxSize int64) bool {
	if !extract.Supported(path) {
		return false
	}
	if size > maxSize {
		return false
	}
	if MatchesExclude(name, config.Exclude) {
		return false
	}
	return true
}

// isGlobPattern reports whether the argument contains glob metacharacters.
func isGlobPattern(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// HashFile computes the SHA-256 digest of the given file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
