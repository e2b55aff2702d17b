// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package scaffold generates a new GenAI client project from an embedded
// template tree. File contents and path segments may contain
// {{ cookiecutter.<name> }} placeholders, which are replaced with the
// resolved variables. Template files carry a .tmpl suffix that is dropped
// on output.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"genaikit/shared/logger"
)

//go:embed all:templates
var templateFS embed.FS

const (
	templateRoot = "templates"
	templateExt  = ".tmpl"
)

// ErrOutputExists is returned when the project directory already exists and
// overwriting was not requested.
var ErrOutputExists = errors.New("output directory already exists")

var placeholder = regexp.MustCompile(`\{\{\s*cookiecutter\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Options control a generation run.
type Options struct {
	// OutputDir is the parent directory; the project is created in
	// OutputDir/<project_slug>.
	OutputDir string
	Overwrite bool
	Logger    *logger.Logger
}

// Result describes a generated project.
type Result struct {
	Dir   string
	Files []string // relative to Dir, slash separated
}

// Generate renders the embedded template into opts.OutputDir.
func Generate(vars *Variables, opts Options) (*Result, error) {
	return generate(templateFS, vars, opts)
}

func generate(tree fs.FS, vars *Variables, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New("scaffold")
	}
	start := time.Now()

	values, err := vars.Resolve()
	if err != nil {
		return nil, err
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	root, err := fs.Sub(tree, templateRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open template tree: %w", err)
	}
	entries, err := fs.ReadDir(root, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read template tree: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil, fmt.Errorf("template tree must contain exactly one top-level directory")
	}

	topName, err := render(entries[0].Name(), values)
	if err != nil {
		return nil, fmt.Errorf("template directory name: %w", err)
	}
	projectDir := filepath.Join(outputDir, topName)
	if _, err := os.Stat(projectDir); err == nil {
		if !opts.Overwrite {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, projectDir)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to check %s: %w", projectDir, err)
	}

	// Render everything before writing so a bad template leaves no partial
	// project behind.
	type outFile struct {
		rel  string
		data []byte
		mode fs.FileMode
	}
	var files []outFile
	err = fs.WalkDir(root, entries[0].Name(), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(p, entries[0].Name()+"/")
		rel, err := render(strings.TrimSuffix(rel, templateExt), values)
		if err != nil {
			return fmt.Errorf("path %s: %w", p, err)
		}
		raw, err := fs.ReadFile(root, p)
		if err != nil {
			return err
		}
		content, err := render(string(raw), values)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		mode := fs.FileMode(0o644)
		if path.Ext(rel) == ".sh" {
			mode = 0o755
		}
		files = append(files, outFile{rel: rel, data: []byte(content), mode: mode})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	result := &Result{Dir: projectDir}
	for _, f := range files {
		dest := filepath.Join(projectDir, filepath.FromSlash(f.rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, f.data, f.mode); err != nil {
			return nil, fmt.Errorf("write %s: %w", dest, err)
		}
		result.Files = append(result.Files, f.rel)
	}

	log.InfoWithDuration("", "Generated project", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"dir":   projectDir,
		"files": len(result.Files),
		"slug":  values[SlugVar],
	})
	return result, nil
}

// render replaces every placeholder in s. A placeholder naming an unknown
// variable is an error.
func render(s string, values map[string]string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		val, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return val
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined variable(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}
