package compiler

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// maxCaptureBytes bounds the combined stdout+stderr captured from a
// compiler invocation, so a pathologically verbose compiler cannot inflate
// the verdict's error_message without limit.
const maxCaptureBytes = 1 << 20

// Outcome is the result of one compile attempt.
type Outcome struct {
	ExePath  string
	Success  bool
	TimedOut bool
	Output   string
}

// Compile invokes lang's compile command against srcPath, producing exePath
// on success: combined stdout+stderr capture, a wall deadline of timeout,
// zero exit -> success, non-zero or timeout -> failure with "Compilation
// timeout" on the timeout path specifically.
func Compile(lang Language, srcPath, exePath string, timeout time.Duration) (Outcome, error) {
	cmdline := strings.NewReplacer("{{src}}", srcPath, "{{exe}}", exePath).Replace(lang.Compile)
	argv, err := shlex.Split(cmdline)
	if err != nil {
		return Outcome{}, fmt.Errorf("tokenize compile command: %w", err)
	}
	if len(argv) == 0 {
		return Outcome{}, fmt.Errorf("empty compile command for language %q", lang.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	buf := newLimitedBuffer(maxCaptureBytes)
	cmd.Stdout = buf
	cmd.Stderr = buf

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Outcome{TimedOut: true, Output: "Compilation timeout"}, nil
	}
	if runErr != nil {
		return Outcome{Output: buf.String()}, nil
	}
	return Outcome{ExePath: exePath, Success: true, Output: buf.String()}, nil
}

// BuildRunArgv substitutes exePath into lang's run command template and
// tokenizes it with the same shell-like quoting rules as Compile. For the
// compiled languages in languages.toml this yields just {{exe}} with no
// extra arguments, but the template is general: a language whose run step
// needs more than its own binary (an interpreter invocation, say) expresses
// that here rather than in the sandbox launcher.
func BuildRunArgv(lang Language, exePath string) ([]string, error) {
	cmdline := strings.NewReplacer("{{exe}}", exePath).Replace(lang.Run)
	argv, err := shlex.Split(cmdline)
	if err != nil {
		return nil, fmt.Errorf("tokenize run command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty run command for language %q", lang.ID)
	}
	return argv, nil
}

// limitedBuffer caps the number of bytes retained; writes beyond the cap
// are silently dropped rather than erroring, since a truncated compiler
// error message is still useful.
type limitedBuffer struct {
	max   int
	bytes []byte
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - len(b.bytes)
	if remaining > 0 {
		if remaining > len(p) {
			remaining = len(p)
		}
		b.bytes = append(b.bytes, p[:remaining]...)
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return string(b.bytes) }
