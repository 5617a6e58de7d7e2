package sandbox

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// ChildMain runs in the freshly re-exec'd child process (cmd/child.go).
// It installs rlimits and execs argv (the language's resolved run command,
// argv[0] plus whatever arguments its run template supplies) with an
// inherited environment. If exec fails it exits with code 1.
func ChildMain(argv []string, timeLimitMs, stackBytes, fsizeBytes int64) {
	if err := setRlimits(timeLimitMs, stackBytes, fsizeBytes); err != nil {
		fmt.Fprintln(os.Stderr, "sandbox child: setrlimit:", err)
		os.Exit(1)
	}

	err := unix.Exec(argv[0], argv, os.Environ())
	// unix.Exec only returns on failure.
	fmt.Fprintln(os.Stderr, "sandbox child: exec:", err)
	os.Exit(1)
}

func setRlimits(timeLimitMs, stackBytes, fsizeBytes int64) error {
	cpuSoft := uint64(math.Ceil(float64(timeLimitMs) / 1000))
	if cpuSoft == 0 {
		cpuSoft = 1
	}
	if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: cpuSoft, Max: cpuSoft + 1}); err != nil {
		return fmt.Errorf("RLIMIT_CPU: %w", err)
	}

	stack := uint64(stackBytes)
	if err := unix.Setrlimit(unix.RLIMIT_STACK, &unix.Rlimit{Cur: stack, Max: stack}); err != nil {
		return fmt.Errorf("RLIMIT_STACK: %w", err)
	}

	fsize := uint64(fsizeBytes)
	if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: fsize, Max: fsize}); err != nil {
		return fmt.Errorf("RLIMIT_FSIZE: %w", err)
	}

	// Best-effort fork-bomb guard; attempted unconditionally even though it
	// is frequently a no-op on a shared-uid judge account. Failure here is
	// not fatal.
	_ = unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: 1, Max: 1})

	return nil
}
