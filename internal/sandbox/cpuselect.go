package sandbox

import (
	"bufio"
	"hash/fnv"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CPUCount returns the number of logical CPUs the host exposes, counted by
// scanning /proc/cpuinfo for lines beginning "processor". Falls back to 1
// if the file cannot be read or no such line is found.
func CPUCount() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 1
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "processor") {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// selectCPU mixes name (already random, the cgroup directory name) with a
// high-resolution timestamp and reduces modulo n. The goal is spread across
// cores for concurrently running sandboxes, not uniqueness.
func selectCPU(name string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	mixed := h.Sum64() ^ uint64(time.Now().UnixNano())
	return int(mixed % uint64(n))
}

// forceCPUAffinity pins pid to cpu directly via sched_setaffinity. This is
// deliberately redundant with the cpuset controller: the cpuset already
// restricts the set of usable CPUs and survives the child's own clone()
// calls, so a failure here is recorded as a warning rather than treated as
// fatal.
func forceCPUAffinity(pid, cpu int) error {
	var set unix.CPUSet
	set.Set(cpu)
	return unix.SchedSetaffinity(pid, &set)
}
