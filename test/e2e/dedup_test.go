package e2e

import (
	"bytes"
	"testing"

	"github.com/substantialcattle5/redup/testutil"
)

func TestDedupRedupRoundTrip(t *testing.T) {
	testutil.SkipIfShort(t, "builds the redup binary")
	ws := NewTestWorkspace(t)

	a := testutil.GenerateTestData(1024)
	b := testutil.GenerateTestData(1024)
	input := testutil.RepetitiveData(a, b, a, a, b, []byte("tail"))
	ws.WriteFile(t, "input.bin", input)

	stdout, stderr, err := ws.RunCommand(t, "dedup", "input.bin", "input.reduced")
	AssertCommandSuccess(t, err, stderr, "dedup")
	AssertOutputContains(t, stdout, "6 total, 3 distinct, 3 duplicate", "dedup summary")

	reduced := ws.ReadFile(t, "input.reduced")
	if !bytes.Equal(reduced, testutil.RepetitiveData(a, b, []byte("tail"))) {
		t.Fatalf("reduced file should hold each distinct chunk once, got %d bytes", len(reduced))
	}
	if !ws.Exists("input.reduced.rdix") {
		t.Fatalf("index sidecar missing")
	}

	_, stderr, err = ws.RunCommand(t, "redup", "input.reduced", "restored.bin")
	AssertCommandSuccess(t, err, stderr, "redup")
	testutil.CompareBytes(t, input, ws.ReadFile(t, "restored.bin"), "restored file")

	stdout, stderr, err = ws.RunCommand(t, "verify", "input.bin", "restored.bin")
	AssertCommandSuccess(t, err, stderr, "verify")
	AssertOutputContains(t, stdout, "identical", "verify output")

	stdout, stderr, err = ws.RunCommand(t, "inspect", "--entries", "input.reduced.rdix")
	AssertCommandSuccess(t, err, stderr, "inspect")
	AssertOutputContains(t, stdout, "positions [0 2 3]", "inspect entries")

	testutil.AssertNoStagingLeftovers(t, ws.Path)
}

func TestRedupRejectsTamperedReducedFile(t *testing.T) {
	testutil.SkipIfShort(t, "builds the redup binary")
	ws := NewTestWorkspace(t)

	ws.WriteFile(t, "input.bin", testutil.RepetitiveData(testutil.Block('a', 1024), testutil.Block('b', 1024)))
	_, stderr, err := ws.RunCommand(t, "dedup", "-q", "input.bin", "input.reduced")
	AssertCommandSuccess(t, err, stderr, "dedup")

	reduced := ws.ReadFile(t, "input.reduced")
	reduced[10] ^= 0xff
	ws.WriteFile(t, "input.reduced", reduced)

	_, stderr, err = ws.RunCommand(t, "redup", "input.reduced", "restored.bin")
	AssertCommandFails(t, err, "redup of tampered file")
	AssertOutputContains(t, stderr, "Error:", "error message")
	if ws.Exists("restored.bin") {
		t.Fatalf("no output may be left after a failed reconstruction")
	}
	testutil.AssertNoStagingLeftovers(t, ws.Path)
}

func TestDedupRefusesToOverwrite(t *testing.T) {
	testutil.SkipIfShort(t, "builds the redup binary")
	ws := NewTestWorkspace(t)

	ws.WriteFile(t, "input.bin", []byte("some input"))
	ws.WriteFile(t, "input.reduced", []byte("precious"))

	_, stderr, err := ws.RunCommand(t, "dedup", "input.bin", "input.reduced")
	AssertCommandFails(t, err, "dedup over existing output")
	AssertOutputContains(t, stderr, "--force", "overwrite hint")
	if got := ws.ReadFile(t, "input.reduced"); string(got) != "precious" {
		t.Fatalf("existing output was modified: %q", got)
	}

	_, stderr, err = ws.RunCommand(t, "dedup", "--force", "input.bin", "input.reduced")
	AssertCommandSuccess(t, err, stderr, "dedup --force")
}

func TestConfigShow(t *testing.T) {
	testutil.SkipIfShort(t, "builds the redup binary")
	ws := NewTestWorkspace(t)

	stdout, stderr, err := ws.RunCommand(t, "config", "show")
	AssertCommandSuccess(t, err, stderr, "config show")
	AssertOutputContains(t, stdout, "built-in defaults", "config source")
	AssertOutputContains(t, stdout, "hash_algorithm: sha256", "config content")
}
