package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTargets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write targets: %v", err)
	}
	return path
}

func TestLoadTargetsMissingFile(t *testing.T) {
	file, err := loadTargets(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing targets file must not error: %v", err)
	}
	if len(file.Targets) != 0 {
		t.Fatalf("expected empty targets, got %+v", file.Targets)
	}
}

func TestLoadTargets(t *testing.T) {
	path := writeTargets(t, `
default = "staging"

[[targets]]
name = "staging"
addr = "http://staging:8090"
token = "s-token"

[[targets]]
name = "prod"
addr = "http://prod:8090"
token = "p-token"
`)
	file, err := loadTargets(path)
	if err != nil {
		t.Fatalf("load targets: %v", err)
	}
	if file.Default != "staging" || len(file.Targets) != 2 {
		t.Fatalf("unexpected targets file %+v", file)
	}
	if file.Targets[1].Name != "prod" || file.Targets[1].Addr != "http://prod:8090" {
		t.Fatalf("unexpected target %+v", file.Targets[1])
	}
}

func TestLoadTargetsBadTOML(t *testing.T) {
	path := writeTargets(t, "default = [broken")
	if _, err := loadTargets(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResolveTarget(t *testing.T) {
	file := targetsFile{
		Default: "staging",
		Targets: []targetConfig{
			{Name: "staging", Addr: "http://staging:8090", Token: "s"},
			{Name: "prod", Addr: "http://prod:8090", Token: "p"},
		},
	}

	got, err := resolveTarget(file, "prod")
	if err != nil || got.Addr != "http://prod:8090" {
		t.Fatalf("named lookup: got %+v err %v", got, err)
	}

	got, err = resolveTarget(file, "")
	if err != nil || got.Name != "staging" {
		t.Fatalf("default lookup: got %+v err %v", got, err)
	}

	if _, err := resolveTarget(file, "nope"); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestResolveTargetFallsBackToFirst(t *testing.T) {
	file := targetsFile{
		Targets: []targetConfig{
			{Name: "only", Addr: "http://only:8090"},
		},
	}
	got, err := resolveTarget(file, "")
	if err != nil || got.Name != "only" {
		t.Fatalf("first-entry fallback: got %+v err %v", got, err)
	}
}

func TestResolveTargetEmptyFile(t *testing.T) {
	if _, err := resolveTarget(targetsFile{}, ""); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}
