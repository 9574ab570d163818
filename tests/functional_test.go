package tests

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestFunctional builds the funxy binary fresh and runs it end to end,
// checking that every built-in demo scenario reports PASS. This tests
// the actual binary, not the compiler/VM packages in isolation.
func TestFunctional(t *testing.T) {
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	binaryPath := filepath.Join(projectRoot, "funxy-test-binary")
	defer os.Remove(binaryPath)

	t.Log("building fresh binary...")
	build := exec.Command("go", "build", "-o", binaryPath, "./cmd/funxy")
	build.Dir = projectRoot
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, output)
	}

	run := exec.Command(binaryPath)
	run.Dir = projectRoot
	output, runErr := run.CombinedOutput()
	got := string(output)

	wantScenarios := []string{
		"struct scaffolding",
		"arithmetic",
		"dynamic array indexing",
		"enum match: Some",
		"enum match: None",
		"generic trait dispatch: i32",
		"generic trait dispatch: bool",
		"FnOnce closure",
		"FnMut closure",
	}

	for _, name := range wantScenarios {
		if !strings.Contains(got, name) {
			t.Errorf("output missing scenario %q:\n%s", name, got)
		}
	}
	if strings.Contains(got, "FAIL") {
		t.Errorf("one or more scenarios failed:\n%s", got)
	}
	if runErr != nil {
		t.Errorf("binary exited with error: %v\n%s", runErr, got)
	}
}
