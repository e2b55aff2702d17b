// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package scaffold

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genaikit/shared/logger"
)

func defaults(t *testing.T) *Variables {
	t.Helper()
	v, err := DefaultVariables()
	require.NoError(t, err)
	return v
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"My GenAI Project":  "my_genai_project",
		"hello-world":       "hello_world",
		"  Trim Me  ":       "trim_me",
		"Café-Bar!":         "caf_bar",
		"42 answers":        "answers",
		"already_snake_123": "already_snake_123",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestDefaultVariablesOrder(t *testing.T) {
	v := defaults(t)
	var names []string
	for _, item := range v.List() {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{
		"project_name", "description", "author_name", "author_email",
		"version", "license", "go_version", "module_path",
	}, names)
}

func TestResolveDerivesSlugAndReferences(t *testing.T) {
	v := defaults(t)
	require.NoError(t, v.ApplyAssignments([]string{"project_name=Acme Chat Bot"}))

	values, err := v.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "acme_chat_bot", values[SlugVar])
	assert.Equal(t, "github.com/example/acme_chat_bot", values["module_path"])
	assert.Equal(t, "1.24", values["go_version"])
}

func TestResolveRejectsBadSlug(t *testing.T) {
	v := defaults(t)
	v.Set(SlugVar, "Bad-Slug")
	_, err := v.Resolve()
	assert.ErrorContains(t, err, "invalid project_slug")
}

func TestApplyAssignmentsErrors(t *testing.T) {
	v := defaults(t)
	assert.Error(t, v.ApplyAssignments([]string{"no_equals"}))
	assert.Error(t, v.ApplyAssignments([]string{"=value"}))
	require.NoError(t, v.ApplyAssignments([]string{"extra=a=b"}))
	got, ok := v.Get("extra")
	assert.True(t, ok)
	assert.Equal(t, "a=b", got)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project_name: Loaded\nauthor_name: Ada\n"), 0o644))

	v := defaults(t)
	require.NoError(t, v.LoadFile(path))
	values, err := v.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "Loaded", values["project_name"])
	assert.Equal(t, "loaded", values[SlugVar])
	assert.Equal(t, "Ada", values["author_name"])

	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o644))
	assert.ErrorContains(t, v.LoadFile(path), "mapping")
	assert.Error(t, v.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestPrompt(t *testing.T) {
	v := defaults(t)
	v.Set("license", "Apache-2.0")

	// project_name, project_slug (default), description, then EOF.
	in := strings.NewReader("Prompted App\n\nA prompted app\n")
	var out bytes.Buffer
	require.NoError(t, v.Prompt(in, &out))

	values, err := v.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "Prompted App", values["project_name"])
	assert.Equal(t, "prompted_app", values[SlugVar])
	assert.Equal(t, "A prompted app", values["description"])
	assert.Equal(t, "Apache-2.0", values["license"])
	assert.Contains(t, out.String(), "project_slug [prompted_app]: ")
	assert.NotContains(t, out.String(), "license [")
}

func TestGenerateEmbeddedTemplate(t *testing.T) {
	v := defaults(t)
	require.NoError(t, v.ApplyAssignments([]string{
		"project_name=Demo Bot",
		"author_name=Grace",
		"module_path=example.com/demo",
	}))
	out := t.TempDir()

	result, err := Generate(v, Options{OutputDir: out, Logger: logger.Nop()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "demo_bot"), result.Dir)

	for _, rel := range []string{
		"go.mod",
		"README.md",
		".env.example",
		"Makefile",
		"Dockerfile",
		".github/workflows/ci.yml",
		"cmd/demo_bot/main.go",
		"internal/client/client.go",
		"internal/client/client_test.go",
	} {
		assert.Contains(t, result.Files, rel)
		_, err := os.Stat(filepath.Join(result.Dir, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}

	gomod, err := os.ReadFile(filepath.Join(result.Dir, "go.mod"))
	require.NoError(t, err)
	assert.Contains(t, string(gomod), "module example.com/demo")
	assert.Contains(t, string(gomod), "go 1.24")
	assert.Contains(t, string(gomod), "github.com/aws/aws-sdk-go-v2/service/bedrockruntime")
	assert.Contains(t, string(gomod), "github.com/aws/aws-sdk-go-v2/config")

	mainGo, err := os.ReadFile(filepath.Join(result.Dir, "cmd", "demo_bot", "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(mainGo), `"example.com/demo/internal/client"`)
	assert.Contains(t, string(mainGo), "openai, bedrock or gemini")

	clientGo, err := os.ReadFile(filepath.Join(result.Dir, "internal", "client", "client.go"))
	require.NoError(t, err)
	assert.Contains(t, string(clientGo), `Bedrock Provider = "bedrock"`)
	assert.Contains(t, string(clientGo), "bedrockruntime.NewFromConfig")
	assert.Contains(t, string(clientGo), `"bedrock-2023-05-31"`)

	// go.sum is not generated, so the image build must create it.
	dockerfile, err := os.ReadFile(filepath.Join(result.Dir, "Dockerfile"))
	require.NoError(t, err)
	assert.Contains(t, string(dockerfile), "RUN go mod tidy")
	assert.NotContains(t, string(dockerfile), "go.sum")

	// GitHub expressions are not cookiecutter placeholders.
	ci, err := os.ReadFile(filepath.Join(result.Dir, ".github", "workflows", "ci.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(ci), "${{ secrets.OPENAI_API_KEY }}")

	readme, err := os.ReadFile(filepath.Join(result.Dir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# Demo Bot")
	assert.NotContains(t, string(readme), "cookiecutter")
}

func TestGenerateOutputExists(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(out, "my_genai_project"), 0o755))

	_, err := Generate(defaults(t), Options{OutputDir: out, Logger: logger.Nop()})
	assert.True(t, errors.Is(err, ErrOutputExists))

	result, err := Generate(defaults(t), Options{OutputDir: out, Overwrite: true, Logger: logger.Nop()})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Files)
}

func TestGenerateUnknownPlaceholder(t *testing.T) {
	tree := fstest.MapFS{
		"templates/{{cookiecutter.project_slug}}/ok.txt.tmpl":     {Data: []byte("{{ cookiecutter.project_name }}")},
		"templates/{{cookiecutter.project_slug}}/zz_bad.txt.tmpl": {Data: []byte("{{ cookiecutter.nope }}")},
	}
	out := t.TempDir()

	_, err := generate(tree, defaults(t), Options{OutputDir: out, Logger: logger.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable(s): nope")

	// ok.txt renders before zz_bad.txt fails; nothing is written.
	_, statErr := os.Stat(filepath.Join(out, "my_genai_project", "ok.txt"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(out, "my_genai_project"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRender(t *testing.T) {
	values := map[string]string{"a": "1", "b": "2"}
	got, err := render("{{cookiecutter.a}}-{{  cookiecutter.b }}-{{ other.c }}", values)
	require.NoError(t, err)
	assert.Equal(t, "1-2-{{ other.c }}", got)

	_, err = render("{{ cookiecutter.x }} {{ cookiecutter.y }}", values)
	assert.ErrorContains(t, err, "x, y")
}
