package sandbox

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Host abstracts the cgroup v2 filesystem so the cgroup handle can be
// exercised without root privilege or a real cgroup v2 mount. The real
// implementation below wraps the cgroup v2 root at /sys/fs/cgroup.
type Host interface {
	Root() string
	Mkdir(path string) error
	Rmdir(path string) error
	ReadFile(path string) (string, error)
	WriteFile(path string, data string) error
	CPUCount() int
}

// fsHost is the Host backed by the real /sys/fs/cgroup hierarchy.
type fsHost struct{}

// NewFSHost returns the Host implementation used outside tests.
func NewFSHost() Host { return fsHost{} }

func (fsHost) Root() string { return "/sys/fs/cgroup" }

func (fsHost) Mkdir(path string) error {
	return os.Mkdir(path, 0o755)
}

func (fsHost) Rmdir(path string) error {
	return os.Remove(path)
}

func (fsHost) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (fsHost) WriteFile(path string, data string) error {
	return os.WriteFile(path, []byte(data), 0o644)
}

func (fsHost) CPUCount() int { return CPUCount() }

// Cgroup owns one ephemeral cgroup v2 directory (C2). Construction does
// not touch the filesystem; only Create does. At most one target process
// is ever attached per handle.
type Cgroup struct {
	host    Host
	name    string
	path    string
	created bool
	cpu     int
	cpuSet  bool
}

// NewCgroup allocates a handle with a unique judge_<6-digit-random> name.
// No filesystem I/O happens here.
func NewCgroup(host Host) *Cgroup {
	name := fmt.Sprintf("judge_%06d", rand.Intn(1_000_000))
	return &Cgroup{
		host: host,
		name: name,
		path: filepath.Join(host.Root(), name),
	}
}

// Name reports the cgroup's directory name, used as entropy for CPU
// selection and for logging.
func (c *Cgroup) Name() string { return c.name }

// Create makes the cgroup directory. Either it establishes the directory
// and flips created to true, or it leaves the handle untouched and returns
// an error; no partial state exists.
func (c *Cgroup) Create() error {
	if c.created {
		return fmt.Errorf("cgroup %s: already created", c.name)
	}
	if err := c.host.Mkdir(c.path); err != nil {
		return fmt.Errorf("create cgroup %s: %w", c.name, err)
	}
	c.created = true
	return nil
}

// SetMemoryLimit writes bytes to memory.max. Overshoot handling (OOM-kill)
// is delegated entirely to the kernel.
func (c *Cgroup) SetMemoryLimit(bytes int64) error {
	if err := c.host.WriteFile(filepath.Join(c.path, "memory.max"), strconv.FormatInt(bytes, 10)); err != nil {
		return fmt.Errorf("set memory.max: %w", err)
	}
	return nil
}

// SetCPULimit enables the cpuset controller on the parent cgroup
// (best-effort), picks one CPU id via the CPU selector, writes it to
// cpuset.cpus, and mirrors the parent's effective memory nodes into
// cpuset.mems.
func (c *Cgroup) SetCPULimit() error {
	// Best-effort: ignore failure if the controller is already enabled.
	_ = c.host.WriteFile(filepath.Join(c.host.Root(), "cgroup.subtree_control"), "+cpuset")

	n := c.host.CPUCount()
	c.cpu = selectCPU(c.name, n)
	if err := c.host.WriteFile(filepath.Join(c.path, "cpuset.cpus"), strconv.Itoa(c.cpu)); err != nil {
		return fmt.Errorf("set cpuset.cpus: %w", err)
	}
	c.cpuSet = true

	mems, err := c.host.ReadFile(filepath.Join(c.host.Root(), "cpuset.mems.effective"))
	if err != nil || strings.TrimSpace(mems) == "" {
		mems = "0"
	}
	if err := c.host.WriteFile(filepath.Join(c.path, "cpuset.mems"), strings.TrimSpace(mems)); err != nil {
		return fmt.Errorf("set cpuset.mems: %w", err)
	}
	return nil
}

// AddProcess writes pid into cgroup.procs. After success the process and
// every future descendant inherit the cgroup.
func (c *Cgroup) AddProcess(pid int) error {
	if err := c.host.WriteFile(filepath.Join(c.path, "cgroup.procs"), strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("add process to cgroup: %w", err)
	}
	return nil
}

// MemoryPeak reads memory.peak, the semantically authoritative MLE metric.
func (c *Cgroup) MemoryPeak() (int64, error) {
	return c.readIntFile("memory.peak")
}

// MemoryCurrent reads memory.current.
func (c *Cgroup) MemoryCurrent() (int64, error) {
	return c.readIntFile("memory.current")
}

func (c *Cgroup) readIntFile(name string) (int64, error) {
	s, err := c.host.ReadFile(filepath.Join(c.path, name))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// CPUID returns the CPU id chosen by SetCPULimit, or 0 if it was never
// called.
func (c *Cgroup) CPUID() int { return c.cpu }

// AllocatedCPU reads back cpuset.cpus for reporting. Returns "" if the
// cpuset was never configured.
func (c *Cgroup) AllocatedCPU() string {
	if !c.cpuSet {
		return ""
	}
	v, err := c.host.ReadFile(filepath.Join(c.path, "cpuset.cpus"))
	if err != nil {
		return strconv.Itoa(c.cpu)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return strconv.Itoa(c.cpu)
	}
	return v
}

// Cleanup removes the cgroup directory. Idempotent, safe after any call
// sequence; errors are swallowed since there is nothing further to do on
// teardown failure.
func (c *Cgroup) Cleanup() {
	if !c.created {
		return
	}
	_ = c.host.Rmdir(c.path)
	c.created = false
}
