package relocate

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available, skipping")
	}
	ctx := context.Background()

	out, err := ExecRunner{}.Run(ctx, t.TempDir(), "sh", "-c", "echo $LC_ALL; pwd")
	require.NoError(t, err)
	assert.Contains(t, out.Stdout, "C\n")
	assert.Zero(t, out.ExitCode)

	out, err = ExecRunner{}.Run(ctx, "", "sh", "-c", "echo broken >&2; exit 3")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "broken\n", out.Stderr)
	assert.Contains(t, err.Error(), "exit status 3: broken")
}

func TestExecRunnerMissingTool(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "", "pkgr-no-such-tool", "--version")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "pkgr-no-such-tool", toolErr.Tool)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestSetEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   []string
		key   string
		value string
		want  []string
	}{
		{"append", []string{"A=1"}, "B", "2", []string{"A=1", "B=2"}},
		{"replace", []string{"A=1", "B=old"}, "B", "new", []string{"A=1", "B=new"}},
		{"prefix is not a match", []string{"AB=1"}, "A", "2", []string{"AB=1", "A=2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, setEnv(tt.env, tt.key, tt.value))
		})
	}
}
