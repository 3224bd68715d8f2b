// Package sanity checks that every source file in a tree parses and that the
// object graph only declares registered dependencies.
package sanity

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danmuck/deskctl/internal/objectmanager"
	"github.com/rs/zerolog/log"
)

// FileResult is the outcome for one file. Err is empty when OK.
type FileResult struct {
	Path string `json:"path"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}

type Report struct {
	Root  string       `json:"root"`
	Files []FileResult `json:"files"`
}

func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

func (r Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if !f.OK {
			out = append(out, f)
		}
	}
	return out
}

// Options selects the files to check.
type Options struct {
	// Extensions defaults to [".go"]. Every file is parsed as Go source, so
	// each extension must end in ".go" (".pb.go", "_test.go"). A missing
	// leading dot is added: "go" means ".go".
	Extensions []string
	// SkipDirs are directory base names never descended into, in addition to
	// hidden and underscore-prefixed directories.
	SkipDirs []string
}

var defaultSkipDirs = []string{"vendor", "testdata", "node_modules"}

// Check walks root and parses every selected file. It does not stop at the
// first failure.
func Check(ctx context.Context, root string, opts Options) (Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Report{}, fmt.Errorf("sanity root: %w", err)
	}
	if !info.IsDir() {
		return Report{}, fmt.Errorf("sanity root %s is not a directory", root)
	}

	exts, err := normalizeExtensions(opts.Extensions)
	if err != nil {
		return Report{}, err
	}
	skip := map[string]bool{}
	for _, d := range append(append([]string(nil), defaultSkipDirs...), opts.SkipDirs...) {
		skip[d] = true
	}

	report := Report{Root: root}
	fset := token.NewFileSet()
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (skip[name] || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExt(name, exts) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		result := FileResult{Path: filepath.ToSlash(rel), OK: true}
		if _, perr := parser.ParseFile(fset, path, nil, parser.AllErrors|parser.SkipObjectResolution); perr != nil {
			result.OK = false
			result.Err = perr.Error()
			log.Debug().Str("file", result.Path).Err(perr).Msg("sanity parse failed")
		}
		report.Files = append(report.Files, result)
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	sort.Slice(report.Files, func(i, j int) bool { return report.Files[i].Path < report.Files[j].Path })
	return report, nil
}

// normalizeExtensions adds a missing leading dot and rejects suffixes that
// do not name Go source.
func normalizeExtensions(in []string) ([]string, error) {
	if len(in) == 0 {
		return []string{".go"}, nil
	}
	out := make([]string, 0, len(in))
	for _, raw := range in {
		ext := strings.TrimSpace(raw)
		if ext != "" && !strings.HasPrefix(ext, ".") && !strings.HasPrefix(ext, "_") {
			ext = "." + ext
		}
		if !strings.HasSuffix(ext, ".go") {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, raw)
		}
		out = append(out, ext)
	}
	return out, nil
}

func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

var (
	ErrUnregisteredDependency = errors.New("declared dependency is not registered")
	ErrUnsupportedExtension   = errors.New("extension is not Go source")
)

// CheckObjectDependencies reports every object whose declared dependencies,
// eager or lazy, are not registered in om.
func CheckObjectDependencies(om *objectmanager.Manager) error {
	registered := map[string]bool{}
	names := om.Names()
	for _, name := range names {
		registered[name] = true
	}
	var errs []error
	for _, name := range names {
		deps, _ := om.Declared(name)
		for _, dep := range deps {
			if !registered[dep] {
				errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrUnregisteredDependency, name, dep))
			}
		}
	}
	return errors.Join(errs...)
}
