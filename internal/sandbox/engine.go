package sandbox

import (
	"fmt"
	"time"
)

// Run executes one judging call: create the cgroup, launch the target
// under it, pump its output, reap it, classify the result, and tear the
// cgroup down. It assumes the caller already compiled the source
// (internal/compiler) and is handing it the resolved run argv (argv[0] is
// the executable path; any further elements come from the language's run
// command template).
func Run(argv []string, inputPath string, limits Limits, host Host) Verdict {
	cg := NewCgroup(host)
	if err := cg.Create(); err != nil {
		return NewSystemError(fmt.Sprintf("create cgroup: %v", err))
	}
	defer cg.Cleanup()

	if err := cg.SetMemoryLimit(limits.MemoryLimitBytes); err != nil {
		return NewSystemError(fmt.Sprintf("configure memory limit: %v", err))
	}
	if err := cg.SetCPULimit(); err != nil {
		return NewSystemError(fmt.Sprintf("configure cpu limit: %v", err))
	}

	startTime := time.Now()
	l, err := startChild(argv, inputPath, limits)
	if err != nil {
		return NewSystemError(fmt.Sprintf("launch child: %v", err))
	}
	defer l.stdoutR.Close()
	defer l.stderrR.Close()

	// The child must be attached to the cgroup before the pump starts
	// reading, or memory it allocates in the race window would not count
	// against memory.peak.
	if err := cg.AddProcess(l.cmd.Process.Pid); err != nil {
		_ = l.cmd.Process.Kill()
		_, _ = l.cmd.Process.Wait()
		return NewSystemError(fmt.Sprintf("attach child to cgroup: %v", err))
	}

	var affinityWarning string
	if err := forceCPUAffinity(l.cmd.Process.Pid, cg.CPUID()); err != nil {
		affinityWarning = fmt.Sprintf("sched_setaffinity failed: %v", err)
	}

	deadline := startTime.Add(time.Duration(limits.TimeLimitMs+1000) * time.Millisecond)
	pr := runPump(l, limits.OutputLimitBytes, deadline)
	v := reap(reapInput{cmd: l.cmd, pumpResult: pr, startTime: startTime, limits: limits, cgroup: cg})

	if affinityWarning != "" {
		v.warn(affinityWarning)
	}
	return v
}
