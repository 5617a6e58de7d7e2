package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type reapInput struct {
	cmd        *exec.Cmd
	pumpResult pumpResult
	startTime  time.Time
	limits     Limits
	cgroup     *Cgroup
}

// reap waits for the child, reads peak memory, and classifies the
// termination cause into a verdict.
func reap(in reapInput) Verdict {
	if !in.pumpResult.stdoutEOF || !in.pumpResult.stderrEOF {
		_ = in.cmd.Process.Kill()
	}

	waitErr := in.cmd.Wait()
	timeUsedMs := time.Since(in.startTime).Milliseconds()

	v := Verdict{
		TimeUsedMs:   timeUsedMs,
		MemUsedBytes: readMemUsed(in.cgroup, in.cmd.ProcessState),
		Stdout:       string(in.pumpResult.stdout),
		OutputLen:    len(in.pumpResult.stdout),
		AllocatedCPU: in.cgroup.AllocatedCPU(),
	}

	classify(&v, in.cmd.ProcessState, waitErr, in.pumpResult.stderr, in.limits)
	return v
}

// readMemUsed reads memory.peak from the cgroup; on failure it falls back
// to rusage.ru_maxrss * 1024, treating ru_maxrss as kilobytes (correct on
// Linux; ru_maxrss units vary on other platforms, but this only ever runs
// on Linux).
func readMemUsed(c *Cgroup, ps *os.ProcessState) int64 {
	if c != nil {
		if peak, err := c.MemoryPeak(); err == nil {
			return peak
		}
	}
	if ps != nil {
		if ru, ok := ps.SysUsage().(*syscall.Rusage); ok {
			return ru.Maxrss * 1024
		}
	}
	return 0
}

// classify implements the first-match-wins verdict mapping table: a clean
// exit is checked against the resource limits before anything else, a
// non-zero exit is a runtime error, and a fatal signal is mapped to the
// verdict it most likely indicates.
func classify(v *Verdict, ps *os.ProcessState, waitErr error, stderr []byte, limits Limits) {
	if ps == nil {
		v.Status = StatusSE
		v.ExitCode = -1
		v.ErrorMessage = fmt.Sprintf("wait failed: %v", waitErr)
		return
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		v.Status = StatusSE
		v.ExitCode = -1
		v.ErrorMessage = "unexpected wait status type"
		return
	}
	classifyWS(v, ws, stderr, limits)
}

// classifyWS holds the pure verdict-mapping logic, separated from
// os.ProcessState so it can be exercised directly with synthetic wait
// statuses in tests.
func classifyWS(v *Verdict, ws syscall.WaitStatus, stderr []byte, limits Limits) {
	switch {
	case ws.Exited():
		code := ws.ExitStatus()
		v.ExitCode = code
		if code == 0 {
			switch {
			case v.TimeUsedMs > limits.TimeLimitMs:
				v.Status = StatusTLE
			case v.MemUsedBytes > limits.MemoryLimitBytes:
				v.Status = StatusMLE
			case int64(v.OutputLen) > limits.OutputLimitBytes:
				v.Status = StatusOLE
			default:
				v.Status = StatusOK
			}
			return
		}
		v.Status = StatusRE
		msg := fmt.Sprintf("Program exited with non-zero code: %d", code)
		if len(stderr) > 0 {
			msg += "\nStderr: " + string(stderr)
		}
		v.ErrorMessage = msg

	case ws.Signaled():
		sig := ws.Signal()
		v.ExitCode = 128 + int(sig)
		switch sig {
		case unix.SIGXCPU:
			v.Status = StatusTLE
			v.ErrorMessage = "Time limit exceeded (SIGXCPU)"
		case unix.SIGKILL:
			if v.MemUsedBytes > limits.MemoryLimitBytes {
				v.Status = StatusMLE
				v.ErrorMessage = "Memory limit exceeded (cgroup)"
			} else {
				v.Status = StatusTLE
				v.ErrorMessage = "Time limit exceeded (SIGKILL)"
			}
		case unix.SIGSEGV:
			v.Status = StatusRE
			v.ErrorMessage = "Segmentation fault"
		case unix.SIGFPE:
			v.Status = StatusRE
			v.ErrorMessage = "Floating point exception"
		case unix.SIGABRT:
			if v.MemUsedBytes > limits.MemoryLimitBytes {
				v.Status = StatusMLE
				v.ErrorMessage = "Memory limit exceeded (allocation failed)"
			} else {
				v.Status = StatusRE
				v.ErrorMessage = "Program aborted"
			}
		default:
			v.Status = StatusRE
			v.ErrorMessage = fmt.Sprintf("Program terminated by signal %d", int(sig))
		}

	default:
		v.Status = StatusSE
		v.ExitCode = -1
		v.ErrorMessage = "child left in unexpected wait state"
	}
}
