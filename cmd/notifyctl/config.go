package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrTargetNotFound = errors.New("notifyctl: target not found")

// targetsFile persists gateway endpoints configured for the operator CLI.
type targetsFile struct {
	Default string         `toml:"default"`
	Targets []targetConfig `toml:"targets"`
}

// targetConfig binds a display name to one gateway endpoint and its token.
type targetConfig struct {
	Name  string `toml:"name"`
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

func defaultTargetsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notifyctl.toml"
	}
	return filepath.Join(home, ".config", "notifyctl", "targets.toml")
}

func loadTargets(path string) (targetsFile, error) {
	var file targetsFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return targetsFile{}, nil
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return targetsFile{}, fmt.Errorf("notifyctl: parse targets (%s): %w", path, err)
	}
	return file, nil
}

// resolveTarget picks a target by name, falling back to the file default
// and then to the first entry.
func resolveTarget(file targetsFile, name string) (targetConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(file.Default)
	}
	if name == "" {
		if len(file.Targets) > 0 {
			return file.Targets[0], nil
		}
		return targetConfig{}, fmt.Errorf("%w: no targets configured", ErrTargetNotFound)
	}
	for _, target := range file.Targets {
		if target.Name == name {
			return target, nil
		}
	}
	return targetConfig{}, fmt.Errorf("%w: %q", ErrTargetNotFound, name)
}
