package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/partition/internal/config"
	"github.com/vango-dev/partition/pkg/devtools"
)

const testConfig = `log:
  level: error
parts:
  - name: user
    children:
      - name: first
        initial: Ada
      - name: last
        initial: Lovelace
  - name: count
    initial: 0
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "partition.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGraphJSON(t *testing.T) {
	out, err := execute(t, "graph", "--config", writeConfig(t), "--format", "json")
	if err != nil {
		t.Fatalf("graph error: %v", err)
	}

	var infos []devtools.PartInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(infos) != 4 {
		t.Fatalf("got %d parts, want 4", len(infos))
	}

	var got []string
	for _, info := range infos {
		got = append(got, info.ActionType)
	}
	want := []string{"UPDATE_USER_FIRST", "UPDATE_USER_LAST", "UPDATE_USER", "UPDATE_COUNT"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("action types (-want +got):\n%s", diff)
	}
	for _, info := range infos {
		if !info.Partitioned {
			t.Errorf("part %d should be partitioned", info.ID)
		}
	}
}

func TestGraphYAML(t *testing.T) {
	out, err := execute(t, "graph", "-c", writeConfig(t), "-f", "yaml")
	if err != nil {
		t.Fatalf("graph error: %v", err)
	}

	var infos []devtools.PartInfo
	if err := yaml.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("invalid YAML output: %v\n%s", err, out)
	}
	if len(infos) != 4 || infos[2].Kind != "composed" {
		t.Errorf("unexpected parts: %+v", infos)
	}
	if diff := cmp.Diff([]uint64{3}, infos[0].Dependents); diff != "" {
		t.Errorf("first dependents (-want +got):\n%s", diff)
	}
}

func TestGraphTable(t *testing.T) {
	out, err := execute(t, "graph", "--config", writeConfig(t))
	if err != nil {
		t.Fatalf("graph error: %v", err)
	}
	for _, want := range []string{"KIND", "user.first", "UPDATE_COUNT", "composed"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestGraphUnknownFormat(t *testing.T) {
	_, err := execute(t, "graph", "--config", writeConfig(t), "--format", "xml")
	if err == nil || !strings.Contains(err.Error(), "P081") {
		t.Errorf("err = %v, want P081", err)
	}
}

func TestGraphMissingConfig(t *testing.T) {
	_, err := execute(t, "graph", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "P080") {
		t.Errorf("err = %v, want P080", err)
	}
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

func TestServe(t *testing.T) {
	cfg, err := config.Load(writeConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Devtools.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(cmd, cfg, ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	resp, err := http.Get("http://" + addr + "/state")
	if err != nil {
		t.Fatal(err)
	}
	var state devtools.StateResponse
	err = json.NewDecoder(resp.Body).Decode(&state)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"user":  map[string]any{"first": "Ada", "last": "Lovelace"},
		"count": float64(0),
	}
	if diff := cmp.Diff(want, state.State); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}

	req, _ := http.NewRequest(http.MethodPut, "http://"+addr+"/parts/4", strings.NewReader(`{"value": 7}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("PUT status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "partition_dispatches_total") {
		t.Errorf("metrics missing dispatch counter:\n%s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
	if !strings.Contains(out.String(), "Devtools listening") {
		t.Errorf("output missing listen line:\n%s", out.String())
	}
}
