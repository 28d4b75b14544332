// Package scanner searches a JavaScript/TypeScript source tree for files
// that import or require a given package.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	logger "github.com/sirupsen/logrus"

	"github.com/depdoctor/depdoctor/domain"
)

const scannerName = "scanner"

// sourceExtensions are the file types treated as JavaScript/TypeScript source.
var sourceExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".mjs": true,
	".cjs": true,
}

// skippedDirs are never descended into regardless of ignore rules.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Scanner implements domain.UsageScanner with a textual pattern match.
// False positives are acceptable; dynamic import patterns may be missed.
type Scanner struct{}

var _ domain.UsageScanner = (*Scanner)(nil)

// New creates a usage scanner.
func New() *Scanner { return &Scanner{} }

// FindUsages walks the tree under root and returns every line that imports
// or requires pkg. Output is ordered by file path (lexicographic), then line
// number, so two runs over the same tree produce identical results.
func (s *Scanner) FindUsages(root, pkg string) ([]domain.UsageSite, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source directory %q is not readable", root)
	}

	pattern := usagePattern(pkg)
	rules := loadIgnoreRules(root)

	var sites []domain.UsageSite
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			logger.Debugf("[%s] Skipping %q: %v", scannerName, path, err)
			return nil
		}

		if entry.IsDir() {
			if skippedDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}

		if rules != nil {
			if rel, relErr := filepath.Rel(root, path); relErr == nil && rules.MatchesPath(rel) {
				return nil
			}
		}

		fileSites, scanErr := scanFile(path, pkg, pattern)
		if scanErr != nil {
			logger.Debugf("[%s] Failed to read %q: %v", scannerName, path, scanErr)
			return nil
		}
		sites = append(sites, fileSites...)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", root, walkErr)
	}

	return sites, nil
}

// usagePattern matches ES imports and CommonJS requires of the package,
// including subpath imports ("pkg/subpath").
func usagePattern(pkg string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pkg)
	return regexp.MustCompile(
		`(?:from\s+|import\s+|import\(|require\()["']` + quoted + `(?:/[^"']*)?["']`,
	)
}

func scanFile(path, pkg string, pattern *regexp.Regexp) ([]domain.UsageSite, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var sites []domain.UsageSite
	reader := bufio.NewScanner(file)
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for reader.Scan() {
		lineNo++
		line := reader.Text()
		if pattern.MatchString(line) {
			sites = append(sites, domain.UsageSite{
				Path:    path,
				Package: pkg,
				Line:    lineNo,
				Snippet: strings.TrimSpace(line),
			})
		}
	}
	if scanErr := reader.Err(); scanErr != nil {
		return nil, scanErr
	}
	return sites, nil
}

// loadIgnoreRules compiles the root .gitignore when present.
func loadIgnoreRules(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	rules, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		logger.Debugf("[%s] Failed to parse %q: %v", scannerName, path, err)
		return nil
	}
	return rules
}
