package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeExperiment(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exp.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewApp_HeadlessMouse(t *testing.T) {
	path := writeExperiment(t, "states: [{name: a, duration: 0.1}]\n")
	_, err := NewApp(Config{ExperimentPath: path, Headless: true, Mute: true})
	if err == nil {
		t.Fatal("mouse source without a terminal should fail")
	}
}

func TestNewApp_MissingFile(t *testing.T) {
	_, err := NewApp(Config{ExperimentPath: filepath.Join(t.TempDir(), "none.yaml"), Headless: true})
	if err == nil {
		t.Fatal("expected error for a missing definition")
	}
}

func TestApp_RunHeadlessRelay(t *testing.T) {
	path := writeExperiment(t, `
name: relay-run
frame_interval: 5ms
blocks: 2
source: {kind: relay, tracker: sim}
states:
  - name: a
    duration: 0.05
    next: b
  - name: b
    duration: 0.05
`)
	results := filepath.Join(t.TempDir(), "results.jsonl")
	app, err := NewApp(Config{
		ExperimentPath: path,
		ResultsPath:    results,
		RelayPort:      "18480",
		Headless:       true,
		Mute:           true,
	})
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	app.Shutdown()

	f, err := os.Open(results)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var states []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			State   string `json:"state"`
			Outcome string `json:"outcome"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad record %q: %v", sc.Text(), err)
		}
		if rec.Outcome != "timeout" {
			t.Errorf("state %s outcome = %s, want timeout", rec.State, rec.Outcome)
		}
		states = append(states, rec.State)
	}
	if len(states) != 4 {
		t.Errorf("records = %v, want a,b twice", states)
	}
}
