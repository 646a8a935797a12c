package config

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/partition/pkg/part"
)

const sampleYAML = `log:
  level: debug
  format: json
devtools:
  addr: 0.0.0.0:9090
  write_timeout: 2s
metrics:
  namespace: app
tracing:
  enabled: true
  thunks: true
parts:
  - name: user
    children:
      - name: first
        initial: Ada
      - name: last
        initial: Lovelace
  - name: count
    initial: 3
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Devtools.Addr != DefaultAddr {
		t.Errorf("Devtools.Addr = %q, want %q", cfg.Devtools.Addr, DefaultAddr)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "partition.yaml", sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Path() != path {
		t.Errorf("Path = %q, want %q", cfg.Path(), path)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Devtools.Addr != "0.0.0.0:9090" {
		t.Errorf("Devtools.Addr = %q", cfg.Devtools.Addr)
	}
	if cfg.Devtools.WriteTimeout != 2*time.Second {
		t.Errorf("Devtools.WriteTimeout = %v, want 2s", cfg.Devtools.WriteTimeout)
	}
	if !cfg.Devtools.Enabled {
		t.Error("Devtools.Enabled should keep its default")
	}
	if cfg.Metrics.Namespace != "app" {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
	if !cfg.Tracing.Enabled || !cfg.Tracing.Thunks {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}

	want := []PartSpec{
		{Name: "user", Children: []PartSpec{
			{Name: "first", Initial: "Ada"},
			{Name: "last", Initial: "Lovelace"},
		}},
		{Name: "count", Initial: 3},
	}
	if diff := cmp.Diff(want, cfg.Parts); diff != "" {
		t.Errorf("Parts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "partition.json", `{
  "devtools": {"enabled": false},
  "parts": [{"name": "flag", "initial": true}]
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Devtools.Enabled {
		t.Error("Devtools.Enabled should be false")
	}
	if len(cfg.Parts) != 1 || cfg.Parts[0].Initial != true {
		t.Errorf("Parts = %+v", cfg.Parts)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "partition.yaml", sampleYAML)
	t.Setenv("PARTITION_DEVTOOLS_ADDR", "127.0.0.1:1234")
	t.Setenv("PARTITION_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Devtools.Addr != "127.0.0.1:1234" {
		t.Errorf("Devtools.Addr = %q, want env override", cfg.Devtools.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want env override", cfg.Log.Level)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	path := writeFile(t, "custom.yaml", "metrics:\n  namespace: fromenv\n")
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Metrics.Namespace != "fromenv" {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv(EnvConfig, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a file should use defaults: %v", err)
	}
	if cfg.Path() != "" {
		t.Errorf("Path = %q, want empty", cfg.Path())
	}
	if cfg.Devtools.Addr != DefaultAddr {
		t.Errorf("Devtools.Addr = %q", cfg.Devtools.Addr)
	}
	if len(cfg.Parts) != 0 {
		t.Errorf("Parts = %+v, want none", cfg.Parts)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{
			name: "missing explicit file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			code: "P080",
		},
		{
			name: "invalid yaml",
			path: func(t *testing.T) string { return writeFile(t, "bad.yaml", "parts: [\n") },
			code: "P080",
		},
		{
			name: "unknown log level",
			path: func(t *testing.T) string { return writeFile(t, "lvl.yaml", "log:\n  level: loud\n") },
			code: "P080",
		},
		{
			name: "unknown log format",
			path: func(t *testing.T) string { return writeFile(t, "fmt.yaml", "log:\n  format: xml\n") },
			code: "P080",
		},
		{
			name: "nameless part",
			path: func(t *testing.T) string { return writeFile(t, "p.yaml", "parts:\n  - initial: 1\n") },
			code: "P020",
		},
		{
			name: "duplicate part",
			path: func(t *testing.T) string {
				return writeFile(t, "d.yaml", "parts:\n  - name: a\n  - name: a\n")
			},
			code: "P022",
		},
		{
			name: "initial and children",
			path: func(t *testing.T) string {
				return writeFile(t, "c.yaml", "parts:\n  - name: a\n    initial: 1\n    children:\n      - name: b\n")
			},
			code: "P020",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	cfg := New()
	cfg.Devtools.Addr = "localhost:9999"
	cfg.Parts = []PartSpec{
		{Name: "todo", Children: []PartSpec{{Name: "title", Initial: "write docs"}}},
	}

	path := filepath.Join(t.TempDir(), "out", "partition.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path = %q after SaveTo", cfg.Path())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Devtools.Addr != "localhost:9999" {
		t.Errorf("Devtools.Addr = %q", loaded.Devtools.Addr)
	}
	if diff := cmp.Diff(cfg.Parts, loaded.Parts); diff != "" {
		t.Errorf("Parts mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	cfg, err := Load(writeFile(t, "partition.yaml", sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	g := part.NewGraph()
	parts, err := cfg.Build(g)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}

	user, count := parts[0], parts[1]
	if user.Kind() != part.KindComposed {
		t.Errorf("user kind = %v, want composed", user.Kind())
	}
	if count.Kind() != part.KindPrimitive || count.Initial() != 3 {
		t.Errorf("count = %v initial %v", count, count.Initial())
	}

	children := user.Children()
	if len(children) != 2 {
		t.Fatalf("user children = %d, want 2", len(children))
	}
	if diff := cmp.Diff([]string{"user", "last"}, children[1].Path()); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	wantInitial := map[string]any{"first": "Ada", "last": "Lovelace"}
	if diff := cmp.Diff(wantInitial, user.Initial()); diff != "" {
		t.Errorf("initial mismatch (-want +got):\n%s", diff)
	}
	if len(g.Parts()) != 4 {
		t.Errorf("graph has %d parts, want 4", len(g.Parts()))
	}
}

func TestBuildRejectsDuplicates(t *testing.T) {
	cfg := New()
	cfg.Parts = []PartSpec{{Name: "a"}, {Name: "a"}}

	_, err := cfg.Build(part.NewGraph())
	if !stderrors.Is(err, part.ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := LogConfig{Level: "warn", Format: "json"}.Handler(&buf)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
