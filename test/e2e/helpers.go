// Package e2e provides end-to-end testing utilities for the redup CLI
package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// TestWorkspace is a temporary directory in which the redup binary runs
type TestWorkspace struct {
	Path       string
	binaryPath string
}

var (
	buildOnce   sync.Once
	builtBinary string
	buildErr    error
	buildOutput []byte
)

// NewTestWorkspace creates a workspace and makes sure the binary is built
func NewTestWorkspace(t *testing.T) *TestWorkspace {
	t.Helper()
	return &TestWorkspace{
		Path:       t.TempDir(),
		binaryPath: ensureBinary(t),
	}
}

// ensureBinary builds the redup binary once per test run and returns its path
func ensureBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "redup-e2e-bin")
		if err != nil {
			buildErr = err
			return
		}
		builtBinary = filepath.Join(dir, "redup")

		cmd := exec.Command("go", "build", "-o", builtBinary, ".")
		cmd.Dir = getProjectRoot(t)
		buildOutput, buildErr = cmd.CombinedOutput()
	})
	if buildErr != nil {
		t.Fatalf("Failed to build redup binary: %v\nOutput: %s", buildErr, buildOutput)
	}
	return builtBinary
}

// getProjectRoot finds the project root directory
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

// RunCommand runs a redup command in the workspace directory. HOME points at
// the workspace so a user's own config never leaks into the test.
func (w *TestWorkspace) RunCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := exec.Command(w.binaryPath, args...)
	cmd.Dir = w.Path
	cmd.Env = append(os.Environ(), "HOME="+w.Path)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if t.Failed() || testing.Verbose() {
		t.Logf("Command: redup %s", strings.Join(args, " "))
		t.Logf("Exit Code: %v", err)
		if stdout != "" {
			t.Logf("Stdout:\n%s", stdout)
		}
		if stderr != "" {
			t.Logf("Stderr:\n%s", stderr)
		}
	}
	return stdout, stderr, err
}

// WriteFile creates a file in the workspace
func (w *TestWorkspace) WriteFile(t *testing.T, relativePath string, data []byte) string {
	t.Helper()

	fullPath := filepath.Join(w.Path, relativePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("Failed to create directories for %s: %v", relativePath, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		t.Fatalf("Failed to create file %s: %v", relativePath, err)
	}
	return fullPath
}

// ReadFile reads a file from the workspace
func (w *TestWorkspace) ReadFile(t *testing.T, relativePath string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(w.Path, relativePath))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", relativePath, err)
	}
	return data
}

// Exists reports whether relativePath exists in the workspace
func (w *TestWorkspace) Exists(relativePath string) bool {
	_, err := os.Stat(filepath.Join(w.Path, relativePath))
	return err == nil
}

// AssertOutputContains checks if output contains expected string
func AssertOutputContains(t *testing.T, output, expected, context string) {
	t.Helper()

	if !strings.Contains(output, expected) {
		t.Errorf("%s: output does not contain expected string.\nExpected substring: %q\nActual output:\n%s",
			context, expected, output)
	}
}

// AssertCommandSuccess checks if command succeeded
func AssertCommandSuccess(t *testing.T, err error, stderr, context string) {
	t.Helper()

	if err != nil {
		t.Fatalf("%s: command failed: %v\nStderr: %s", context, err, stderr)
	}
}

// AssertCommandFails checks if command failed as expected
func AssertCommandFails(t *testing.T, err error, context string) {
	t.Helper()

	if err == nil {
		t.Fatalf("%s: expected command to fail, but it succeeded", context)
	}
}
