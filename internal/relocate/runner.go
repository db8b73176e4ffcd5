package relocate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkgr-labs/pkgr/internal/logging"
)

// Output captures the result of a tool invocation.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner runs external tools. ExecRunner is the real implementation.
type Runner interface {
	// Run executes name with args in dir (the current directory when dir
	// is empty). A non-zero exit yields a *ToolError carrying the output.
	Run(ctx context.Context, dir, name string, args ...string) (*Output, error)
}

// ToolError reports a failed tool invocation.
type ToolError struct {
	Tool   string
	Args   []string
	Output *Output
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Tool, strings.Join(e.Args, " "))
	if e.Output != nil && e.Output.ExitCode != 0 {
		msg += fmt.Sprintf(": exit status %d", e.Output.ExitCode)
		if s := strings.TrimSpace(e.Output.Stderr); s != "" {
			msg += ": " + s
		}
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExecRunner runs tools as subprocesses with a C locale so their output can
// be parsed.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (*Output, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, &ToolError{Tool: name, Args: args, Err: err}
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = setEnv(os.Environ(), "LC_ALL", "C")

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	logger := logging.Get("relocate")
	logger.Trace().Str("tool", name).Strs("args", args).Str("dir", dir).Msg("Running tool")
	err = cmd.Run()

	output := &Output{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output.ExitCode = exitErr.ExitCode()
		}
		return output, &ToolError{Tool: name, Args: args, Output: output, Err: err}
	}
	return output, nil
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
