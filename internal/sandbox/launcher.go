package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// childParams is the set of values the parent hands to the re-exec'd child
// process over CLI flags and positional args (see cmd/child.go). Argv is
// the fully resolved run command (argv[0] plus whatever arguments the
// language's run template supplies) and is exec'd verbatim.
type childParams struct {
	Argv        []string
	TimeLimitMs int64
	StackBytes  int64
	FSizeBytes  int64
}

func (p childParams) args() []string {
	a := []string{
		"child",
		"--time=" + strconv.FormatInt(p.TimeLimitMs, 10),
		"--stack=" + strconv.FormatInt(p.StackBytes, 10),
		"--fsize=" + strconv.FormatInt(p.FSizeBytes, 10),
		"--",
	}
	return append(a, p.Argv...)
}

// launch holds everything the parent needs after starting the child:
// the running command and the read ends of its stdout/stderr pipes.
type launch struct {
	cmd     *exec.Cmd
	stdoutR *os.File
	stderrR *os.File
}

// startChild launches the target program. Rather than a raw fork(), the
// parent re-execs its own binary with a hidden "child" subcommand
// (cmd/child.go); the freshly started, single-threaded child process
// installs rlimits on itself and then exec's the real target. Forking a
// live, multi-threaded Go runtime and running further Go code before exec
// is unsafe, so the "after fork" setup work happens after a real exec
// instead.
//
// Fd wiring (open input → fd0, pipe write ends → fd1/fd2) is delegated to
// os/exec's Stdin/Stdout/Stderr fields, which the Go runtime wires up in
// the child before any Go code runs there — equivalent to the manual
// dup2 sequence in the original protocol.
func startChild(argv []string, inputPath string, limits Limits) (*launch, error) {
	input, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer input.Close()

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, fmt.Errorf("resolve own executable path: %w", err)
	}

	params := childParams{
		Argv:        argv,
		TimeLimitMs: limits.TimeLimitMs,
		StackBytes:  limits.StackLimitBytes,
		FSizeBytes:  limits.OutputLimitBytes,
	}

	cmd := exec.Command(self, params.args()...)
	cmd.Stdin = input
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	startErr := cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		stdoutR.Close()
		stderrR.Close()
		return nil, fmt.Errorf("start child: %w", startErr)
	}

	return &launch{cmd: cmd, stdoutR: stdoutR, stderrR: stderrR}, nil
}
