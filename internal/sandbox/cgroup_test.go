package sandbox

import (
	"fmt"
	"strings"
	"testing"
)

// fakeHost is an in-memory Host used so cgroup tests run without root
// privilege or a real cgroup v2 mount.
type fakeHost struct {
	files      map[string]string
	dirs       map[string]bool
	cpuCount   int
	failMkdir  bool
	failWrites map[string]bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		files:      map[string]string{"/cgroup/cpuset.mems.effective": "0"},
		dirs:       map[string]bool{},
		cpuCount:   4,
		failWrites: map[string]bool{},
	}
}

func (h *fakeHost) Root() string { return "/cgroup" }

func (h *fakeHost) Mkdir(path string) error {
	if h.failMkdir {
		return fmt.Errorf("mkdir disabled")
	}
	if h.dirs[path] {
		return fmt.Errorf("exists")
	}
	h.dirs[path] = true
	return nil
}

func (h *fakeHost) Rmdir(path string) error {
	if !h.dirs[path] {
		return fmt.Errorf("no such directory")
	}
	delete(h.dirs, path)
	return nil
}

func (h *fakeHost) ReadFile(path string) (string, error) {
	v, ok := h.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return v, nil
}

func (h *fakeHost) WriteFile(path string, data string) error {
	if h.failWrites[path] {
		return fmt.Errorf("write disabled: %s", path)
	}
	h.files[path] = data
	return nil
}

func (h *fakeHost) CPUCount() int { return h.cpuCount }

func TestCgroupCreateLifecycle(t *testing.T) {
	h := newFakeHost()
	cg := NewCgroup(h)
	if !strings.HasPrefix(cg.Name(), "judge_") {
		t.Fatalf("unexpected cgroup name %q", cg.Name())
	}
	if len(h.dirs) != 0 {
		t.Fatal("NewCgroup must not touch the filesystem")
	}

	if err := cg.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !h.dirs[cg.path] {
		t.Fatal("expected cgroup directory to exist after Create")
	}

	cg.Cleanup()
	if h.dirs[cg.path] {
		t.Fatal("expected cgroup directory to be removed after Cleanup")
	}

	// Cleanup is idempotent.
	cg.Cleanup()
}

func TestCgroupCreateFailureLeavesNoState(t *testing.T) {
	h := newFakeHost()
	h.failMkdir = true
	cg := NewCgroup(h)
	if err := cg.Create(); err == nil {
		t.Fatal("expected Create to fail")
	}
	if h.dirs[cg.path] {
		t.Fatal("directory must not exist after failed Create")
	}
	// Cleanup on a never-created handle must be a no-op, not an error.
	cg.Cleanup()
}

func TestCgroupSetCPULimitSelectsWithinRange(t *testing.T) {
	h := newFakeHost()
	cg := NewCgroup(h)
	if err := cg.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer cg.Cleanup()

	if err := cg.SetCPULimit(); err != nil {
		t.Fatalf("SetCPULimit: %v", err)
	}
	if cg.CPUID() < 0 || cg.CPUID() >= h.cpuCount {
		t.Fatalf("CPUID() = %d, want [0, %d)", cg.CPUID(), h.cpuCount)
	}
	got := cg.AllocatedCPU()
	if got == "" {
		t.Fatal("AllocatedCPU() must be non-empty after SetCPULimit")
	}
	if strings.ContainsAny(got, "-,") {
		t.Fatalf("AllocatedCPU() = %q, want a single id not a range/list", got)
	}
}

func TestCgroupMemoryPeak(t *testing.T) {
	h := newFakeHost()
	cg := NewCgroup(h)
	if err := cg.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer cg.Cleanup()

	h.files[cg.path+"/memory.peak"] = "1048576"
	peak, err := cg.MemoryPeak()
	if err != nil {
		t.Fatalf("MemoryPeak: %v", err)
	}
	if peak != 1048576 {
		t.Errorf("MemoryPeak() = %d, want 1048576", peak)
	}
}
