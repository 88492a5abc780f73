// Package testhelper builds the backport binary for end-to-end tests.
package testhelper

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

var (
	binaryPath string
	binaryDir  string
	binaryOnce sync.Once
	binaryErr  error
)

// BinaryPath returns the path to a backport binary built from this module.
// The binary is built once per test process.
func BinaryPath() (string, error) {
	binaryOnce.Do(func() {
		binaryPath, binaryErr = buildBinary()
	})
	return binaryPath, binaryErr
}

// Cleanup removes the built binary. Call it from TestMain after m.Run.
func Cleanup() {
	if binaryDir != "" {
		_ = os.RemoveAll(binaryDir)
	}
}

func buildBinary() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	moduleRoot := findModuleRoot(wd)
	if moduleRoot == "" {
		return "", fmt.Errorf("could not find module root (go.mod) starting from %s", wd)
	}

	dir, err := os.MkdirTemp("", "backport-test-binary-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	binaryDir = dir
	path := filepath.Join(dir, "backport")

	cmd := exec.Command("go", "build", "-o", path, "./cmd/backport")
	cmd.Dir = moduleRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to build: %s: %w", string(output), err)
	}
	return path, nil
}

// findModuleRoot walks up from startDir to the directory holding go.mod
func findModuleRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
