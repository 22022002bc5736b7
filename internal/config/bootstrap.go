package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// EnsureUserConfig makes sure dataDir holds an editable config.yml, seeding
// it from the packaged default on first start. An existing file is never
// touched, so operator edits survive restarts and upgrades.
func EnsureUserConfig(dataDir, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	switch _, err := os.Stat(userPath); {
	case err == nil:
		return userPath, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("stat user config: %w", err)
	}

	def, err := os.ReadFile(defaultPath)
	if err != nil {
		return "", fmt.Errorf("read default config: %w", err)
	}
	if err := os.WriteFile(userPath, def, 0o644); err != nil {
		return "", fmt.Errorf("seed user config: %w", err)
	}
	log.Printf("[config] seeded %s from %s", userPath, defaultPath)
	return userPath, nil
}
