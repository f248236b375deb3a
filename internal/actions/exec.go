package actions

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

const (
	defaultCmdTimeout = 60 * time.Second
	maxCmdTimeout     = 5 * time.Minute
	maxOutputChars    = 4000
)

// commandAllowlist names the binaries run_command will execute. Anything
// else fails before a process is spawned.
var commandAllowlist = []string{
	"go", "gofmt", "goimports", "golangci-lint",
	"git",
	"ls", "cat", "head", "tail", "grep", "find", "wc", "diff", "sort", "uniq",
	"mkdir", "touch", "cp", "mv",
	"echo", "date", "which", "env",
	"make", "jq",
}

func allowed(cmd string) bool {
	for _, a := range commandAllowlist {
		if cmd == a {
			return true
		}
	}
	return false
}

// NewRunCommand returns an action that executes one allowlisted command in
// the working root. A non-zero exit is reported in the output, not as an
// execution failure, so the model can read the diagnostics and react.
func NewRunCommand(root string) engine.Action {
	return engine.Action{
		ID:          "run_command",
		Description: "run one allowlisted command in the working root; args is a list of argument strings",
		InputSchema: `{
			"type": "object",
			"properties": {
				"cmd": {"type":"string"},
				"args": {"type":"array","items":{"type":"string"}},
				"timeout_seconds": {"type":"integer","minimum":1,"maximum":300}
			},
			"required": ["cmd"]
		}`,
		InputExample: map[string]any{"cmd": "go", "args": []any{"vet", "./..."}},
		Execute: func(ctx context.Context, input map[string]any, run *engine.Run) (map[string]any, error) {
			cmd, _ := input["cmd"].(string)
			if !allowed(cmd) {
				return nil, fmt.Errorf("command %q is not allowlisted; allowed: %s",
					cmd, strings.Join(commandAllowlist, ", "))
			}

			var args []string
			if raw, ok := input["args"].([]any); ok {
				for _, a := range raw {
					s, ok := a.(string)
					if !ok {
						return nil, fmt.Errorf("args must be strings, got %T", a)
					}
					args = append(args, s)
				}
			}

			timeout := defaultCmdTimeout
			if secs, ok := input["timeout_seconds"].(float64); ok && secs > 0 {
				timeout = time.Duration(secs) * time.Second
				if timeout > maxCmdTimeout {
					timeout = maxCmdTimeout
				}
			}
			cmdCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var stdout, stderr bytes.Buffer
			proc := exec.CommandContext(cmdCtx, cmd, args...)
			proc.Dir = root
			proc.Stdout = &stdout
			proc.Stderr = &stderr

			runErr := proc.Run()
			exitCode := 0
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if runErr != nil {
				return nil, runErr
			}

			return map[string]any{
				"cmd":       strings.TrimSpace(cmd + " " + strings.Join(args, " ")),
				"exit_code": exitCode,
				"stdout":    clip(stdout.String()),
				"stderr":    clip(stderr.String()),
				"timed_out": cmdCtx.Err() == context.DeadlineExceeded,
			}, nil
		},
		FormatResult: func(seed string, output map[string]any) string {
			if code, _ := output["exit_code"].(int); code != 0 {
				return fmt.Sprintf("run_command exited %d for %v: %v", code, output["cmd"], output["stderr"])
			}
			return fmt.Sprintf("%s: %v\n%v", seed, output["cmd"], output["stdout"])
		},
	}
}

func clip(s string) string {
	if len(s) > maxOutputChars {
		return s[:maxOutputChars] + "...(truncated)"
	}
	return s
}
