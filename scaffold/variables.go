// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package scaffold

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cookiecutter.yaml
var defaultsYAML []byte

// SlugVar is derived from project_name unless set explicitly.
const SlugVar = "project_slug"

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Variable is one template variable and its current value.
type Variable struct {
	Name  string
	Value string
}

// Variables is an ordered set of template variables. Order follows
// cookiecutter.yaml so later defaults can reference earlier ones.
type Variables struct {
	order  []string
	values map[string]string
	set    map[string]bool
}

// DefaultVariables returns the embedded defaults.
func DefaultVariables() (*Variables, error) {
	v := &Variables{values: map[string]string{}, set: map[string]bool{}}
	if err := v.merge(defaultsYAML, true); err != nil {
		return nil, fmt.Errorf("invalid embedded defaults: %w", err)
	}
	return v, nil
}

// LoadFile overlays variables from a YAML mapping file.
func (v *Variables) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read variables file: %w", err)
	}
	if err := v.merge(data, false); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// merge decodes into a yaml.Node so key order is preserved.
func (v *Variables) merge(data []byte, defaults bool) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping of variable names to values")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("variable %q must be a scalar", key.Value)
		}
		if defaults {
			v.add(key.Value, val.Value)
		} else {
			v.Set(key.Value, val.Value)
		}
	}
	return nil
}

func (v *Variables) add(name, value string) {
	if _, ok := v.values[name]; !ok {
		v.order = append(v.order, name)
	}
	v.values[name] = value
}

// Set overrides a variable. Names not present in the defaults are added.
func (v *Variables) Set(name, value string) {
	v.add(name, value)
	v.set[name] = true
}

// ApplyAssignments parses key=value arguments.
func (v *Variables) ApplyAssignments(args []string) error {
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid variable %q, expected key=value", arg)
		}
		v.Set(name, value)
	}
	return nil
}

// Get returns a variable's raw value.
func (v *Variables) Get(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

// List returns the variables in declaration order.
func (v *Variables) List() []Variable {
	out := make([]Variable, 0, len(v.order))
	for _, name := range v.order {
		out = append(out, Variable{Name: name, Value: v.values[name]})
	}
	return out
}

// Prompt asks for every variable on out and reads answers from in. An empty
// answer keeps the shown default. Explicitly set variables are not asked.
func (v *Variables) Prompt(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	names := v.order
	if _, ok := v.values[SlugVar]; !ok {
		names = append([]string{}, v.order...)
		names = insertAfter(names, "project_name", SlugVar)
	}
	for _, name := range names {
		if v.set[name] {
			continue
		}
		def := v.values[name]
		if name == SlugVar && def == "" {
			def = Slugify(v.values["project_name"])
		}
		if shown, err := render(def, v.snapshot()); err == nil {
			def = shown
		}
		fmt.Fprintf(out, "%s [%s]: ", name, def)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read answer: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}
		if answer := strings.TrimSpace(scanner.Text()); answer != "" {
			v.Set(name, answer)
		}
	}
	return nil
}

func (v *Variables) snapshot() map[string]string {
	out := make(map[string]string, len(v.values)+1)
	for name, val := range v.values {
		out[name] = val
	}
	if out[SlugVar] == "" {
		out[SlugVar] = Slugify(out["project_name"])
	}
	return out
}

func insertAfter(names []string, after, name string) []string {
	for i, n := range names {
		if n == after {
			return append(names[:i+1], append([]string{name}, names[i+1:]...)...)
		}
	}
	return append(names, name)
}

// Resolve derives project_slug when unset, substitutes references between
// variables and validates the slug.
func (v *Variables) Resolve() (map[string]string, error) {
	out := v.snapshot()
	if !slugPattern.MatchString(out[SlugVar]) {
		return nil, fmt.Errorf("invalid project_slug %q: must start with a letter and contain only lower-case letters, digits and underscores", out[SlugVar])
	}

	for _, name := range v.order {
		if name == SlugVar {
			continue
		}
		rendered, err := render(out[name], out)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		out[name] = rendered
	}
	return out, nil
}

// Slugify lower-cases s, maps spaces and dashes to underscores and drops
// anything that is not a letter, digit or underscore.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "_0123456789")
}
