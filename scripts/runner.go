package scripts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the configuration for the ScriptRunner
type Config struct {
	PythonPath      string        // Path to Python executable
	ScriptsPath     string        // Path to Python scripts directory
	Timeout         time.Duration // Script execution timeout
	Environment     []string      // Additional environment variables
	RequiredScripts []string      // Scripts that must exist at startup
}

type ScriptRunner struct {
	config Config
	logger *logrus.Logger
}

func NewScriptRunner(cfg Config, logger *logrus.Logger) (*ScriptRunner, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ScriptRunner{config: cfg, logger: logger}, nil
}

func validateConfig(cfg Config) error {
	if cfg.PythonPath == "" {
		return fmt.Errorf("python path is required")
	}
	if _, err := os.Stat(cfg.ScriptsPath); os.IsNotExist(err) {
		return fmt.Errorf("scripts directory does not exist: %s", cfg.ScriptsPath)
	}
	for _, script := range cfg.RequiredScripts {
		scriptPath := filepath.Join(cfg.ScriptsPath, script)
		if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
			return fmt.Errorf("required script not found: %s", scriptPath)
		}
	}
	return nil
}

// RunScript executes scriptName with --key value arguments and --flag switches
// and returns its stdout, which must be valid JSON.
func (r *ScriptRunner) RunScript(
	ctx context.Context,
	scriptName string,
	args map[string]string,
	flags []string,
) ([]byte, error) {
	scriptPath := filepath.Join(r.config.ScriptsPath, scriptName)
	logger := r.logger.WithFields(logrus.Fields{
		"script": scriptName,
		"args":   args,
		"flags":  flags,
	})

	if r.config.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
			defer cancel()
		}
	}

	logger.Debug("Executing script")
	start := time.Now()

	cmdArgs := buildCommandArgs(scriptPath, args, flags)
	cmd := exec.CommandContext(ctx, r.config.PythonPath, cmdArgs...)
	cmd.Dir = r.config.ScriptsPath
	cmd.Env = buildEnvironment(r.config.Environment)

	output, stderr, err := r.executeCommand(cmd, logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newScriptError(scriptName, ctx.Err(), "script timed out or was cancelled", stderr)
		}
		return nil, newScriptError(scriptName, err, "script execution failed", stderr)
	}

	logger.WithField("duration", time.Since(start)).Debug("Script finished")
	return output, nil
}

// buildCommandArgs emits arguments in sorted key order so invocations are reproducible.
func buildCommandArgs(scriptPath string, args map[string]string, flags []string) []string {
	cmdArgs := []string{scriptPath}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := args[k]; v != "" {
			cmdArgs = append(cmdArgs, fmt.Sprintf("--%s", k), v)
		}
	}
	for _, flag := range flags {
		cmdArgs = append(cmdArgs, fmt.Sprintf("--%s", flag))
	}
	return cmdArgs
}

func buildEnvironment(additionalEnv []string) []string {
	env := append(os.Environ(),
		"PYTHONUNBUFFERED=1",
		"TOKENIZERS_PARALLELISM=false",
	)
	if len(additionalEnv) > 0 {
		env = append(env, additionalEnv...)
	}
	return env
}

// executeCommand runs cmd and returns stdout, the captured stderr, and any error.
func (r *ScriptRunner) executeCommand(cmd *exec.Cmd, logger *logrus.Entry) ([]byte, string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrOutput := strings.TrimSpace(stderr.String())
		logger.WithError(err).WithField("stderr", stderrOutput).Error("Script execution failed")
		return nil, stderrOutput, err
	}

	output := stdout.Bytes()
	if err := validateJSONOutput(output); err != nil {
		logger.WithError(err).WithField("output", string(output)).Error("Invalid JSON output")
		return nil, stderr.String(), err
	}

	return output, "", nil
}

func validateJSONOutput(output []byte) error {
	if !json.Valid(bytes.TrimSpace(output)) {
		return fmt.Errorf("invalid JSON output: %q", truncate(string(output), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
