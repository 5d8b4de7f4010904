package scripts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// writeScript creates a POSIX shell script that the runner executes via /bin/sh.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
}

func newTestRunner(t *testing.T, dir string, timeout time.Duration) *ScriptRunner {
	t.Helper()
	runner, err := NewScriptRunner(Config{
		PythonPath:  "/bin/sh",
		ScriptsPath: dir,
		Timeout:     timeout,
	}, nil)
	if err != nil {
		t.Fatalf("NewScriptRunner() error = %v", err)
	}
	return runner
}

func TestRunScriptReturnsJSON(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "echo.sh", `printf '{"args":"%s %s %s %s"}' "$1" "$2" "$3" "$4"`)

	runner := newTestRunner(t, dir, 5*time.Second)
	out, err := runner.RunScript(context.Background(), "echo.sh", map[string]string{
		"themes":    "action,love",
		"subtitles": "/data/subs",
		"empty":     "",
	}, nil)
	if err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	expected := `{"args":"--subtitles /data/subs --themes action,love"}`
	if strings.TrimSpace(string(out)) != expected {
		t.Errorf("unexpected output: got %s want %s", out, expected)
	}
}

func TestRunScriptRejectsNonJSON(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "plain.sh", `echo "not json"`)

	runner := newTestRunner(t, dir, 5*time.Second)
	if _, err := runner.RunScript(context.Background(), "plain.sh", nil, nil); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}

func TestRunScriptFailureIncludesStderr(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "fail.sh", `echo "model not found" >&2; exit 3`)

	runner := newTestRunner(t, dir, 5*time.Second)
	_, err := runner.RunScript(context.Background(), "fail.sh", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected *ScriptError, got %T", err)
	}
	if scriptErr.Script != "fail.sh" || scriptErr.Stderr != "model not found" {
		t.Errorf("ScriptError = %+v", scriptErr)
	}
	if !strings.Contains(err.Error(), "fail.sh: script execution failed") || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("expected script name and stderr in error, got %v", err)
	}
}

func TestStderrTail(t *testing.T) {
	if got := stderrTail("  short\n"); got != "short" {
		t.Errorf("stderrTail(short) = %q", got)
	}

	long := strings.Repeat("x", 400) + "\nValueError: bad model"
	got := stderrTail(long)
	if got != "...ValueError: bad model" {
		t.Errorf("stderrTail(long) = %q", got)
	}
}

func TestRunScriptTimeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "slow.sh", `exec sleep 5`)

	runner := newTestRunner(t, dir, 100*time.Millisecond)
	_, err := runner.RunScript(context.Background(), "slow.sh", nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNewScriptRunnerValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing python", Config{ScriptsPath: dir}},
		{"missing directory", Config{PythonPath: "python3", ScriptsPath: filepath.Join(dir, "nope")}},
		{"missing required script", Config{PythonPath: "python3", ScriptsPath: dir, RequiredScripts: []string{"theme_classifier.py"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewScriptRunner(tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildCommandArgs(t *testing.T) {
	got := buildCommandArgs("/s/run.py", map[string]string{"b": "2", "a": "1"}, []string{"verbose"})
	want := []string{"/s/run.py", "--a", "1", "--b", "2", "--verbose"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildCommandArgs() = %v, want %v", got, want)
	}
}
