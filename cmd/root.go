package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sempr/judge-sandbox/internal/compiler"
	"github.com/sempr/judge-sandbox/internal/sandbox"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var rootCmd = &cobra.Command{
	Use:          "sandbox <limits_file> <source_file> <input_file>",
	Short:        "Compile and run a program under cgroup v2 and rlimit constraints",
	Args:         cobra.ExactArgs(3),
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		emit(judge(args[0], args[1], args[2]))
	},
}

// Execute runs the root command. Usage errors (wrong argument count,
// unknown flags) exit 1; every other failure mode is reported as an SE
// verdict on stdout and the process still exits 0.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// judge runs one full judging call: load limits, compile, run under the
// sandbox, and return the final verdict. It never returns an error;
// every failure mode is folded into the returned Verdict's status.
func judge(limitsPath, sourcePath, inputPath string) sandbox.Verdict {
	if unix.Geteuid() != 0 {
		return sandbox.NewSystemError("sandbox requires effective uid 0 to manage cgroup v2")
	}
	if err := checkCgroupV2(); err != nil {
		return sandbox.NewSystemError(fmt.Sprintf("cgroup v2 unavailable: %v", err))
	}

	limits, err := sandbox.LoadLimits(limitsPath)
	if err != nil {
		return sandbox.NewSystemError(fmt.Sprintf("load limits: %v", err))
	}

	registry, err := compiler.DefaultRegistry()
	if err != nil {
		return sandbox.NewSystemError(fmt.Sprintf("load language registry: %v", err))
	}
	lang, ok := registry.Lookup(sourcePath)
	if !ok {
		return sandbox.NewSystemError(fmt.Sprintf("no compiler registered for %s", sourcePath))
	}

	exePath := strings.TrimSuffix(sourcePath, lang.Suffix) + ".judge_bin"
	defer os.Remove(exePath)

	Init().Info("compiling", "lang", lang.ID, "source", sourcePath)
	out, err := compiler.Compile(lang, sourcePath, exePath, time.Duration(limits.CompileTimeoutMs)*time.Millisecond)
	if err != nil {
		return sandbox.NewSystemError(fmt.Sprintf("invoke compiler: %v", err))
	}
	if out.TimedOut {
		return sandbox.NewCompileError("Compilation timeout")
	}
	if !out.Success {
		return sandbox.NewCompileError(out.Output)
	}

	argv, err := compiler.BuildRunArgv(lang, exePath)
	if err != nil {
		return sandbox.NewSystemError(fmt.Sprintf("build run command: %v", err))
	}

	Init().Info("running", "exe", exePath)
	return sandbox.Run(argv, inputPath, limits, sandbox.NewFSHost())
}

// checkCgroupV2 verifies the unified cgroup v2 hierarchy is mounted by
// checking for cgroup.controllers, which only exists under the v2 layout.
func checkCgroupV2() error {
	_, err := os.Stat("/sys/fs/cgroup/cgroup.controllers")
	return err
}

func emit(v sandbox.Verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		// Verdict has no types that can fail to marshal; this is
		// unreachable in practice.
		fmt.Fprintln(os.Stderr, "marshal verdict:", err)
		data = []byte(`{"status":"SE","exit_code":-1,"error_message":"failed to marshal verdict"}`)
	}
	fmt.Println(string(data))
}
