package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// DefaultIngestPattern matches every file name.
const DefaultIngestPattern = "*"

// expandPaths turns files and directories into the ordered job list.
// Files under each root are sorted; a file reached twice is kept once.
func expandPaths(opts domain.IngestOptions) ([]domain.IngestJob, error) {
	if len(opts.Paths) == 0 {
		return nil, &domain.ValidationError{Field: "paths", Message: "at least one path is required"}
	}

	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultIngestPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, &domain.ValidationError{Field: "pattern", Message: fmt.Sprintf("invalid glob %q", pattern)}
	}

	// Every path is checked before any is walked.
	infos := make([]fs.FileInfo, len(opts.Paths))
	for i, p := range opts.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &domain.ValidationError{Field: "paths", Message: fmt.Sprintf("%s: %v", p, unwrapPathError(err))}
		}
		infos[i] = info
	}

	seen := make(map[string]bool)
	var jobs []domain.IngestJob
	for i, root := range opts.Paths {
		files := []string{root}
		if infos[i].IsDir() {
			var err error
			if files, err = collectFiles(root, pattern, opts.Recursive); err != nil {
				return nil, err
			}
		}

		for _, f := range files {
			key := filepath.Clean(f)
			if abs, err := filepath.Abs(f); err == nil {
				key = abs
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			jobs = append(jobs, domain.IngestJob{
				Index:      len(jobs),
				SourcePath: f,
				Namespace:  opts.Namespace,
				Metadata:   opts.Metadata,
			})
		}
	}
	return jobs, nil
}

// collectFiles lists regular files in dir whose base name matches pattern.
func collectFiles(dir, pattern string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func unwrapPathError(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// sourcePath returns the path recorded in source_path metadata: relative to
// base when the file lives under it, the given path when it does not, and
// the bare file name when no base is set.
func sourcePath(path, base string) string {
	if base == "" {
		return filepath.Base(path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
