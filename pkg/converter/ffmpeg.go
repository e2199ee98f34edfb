package converter

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes an external media tool and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("looking for `%s`: %w", name, err)
	}

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("running `%s`: %w", name, err)
	}

	return out, nil
}

// tail keeps the end of tool output for error messages; ffmpeg puts the
// actual failure reason last.
func tail(out []byte) string {
	const max = 512
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
