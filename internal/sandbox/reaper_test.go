package sandbox

import (
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

// exitedStatus and signaledStatus build a syscall.WaitStatus using the
// standard wait(2) status-word encoding, without needing a real process.
func exitedStatus(code int) syscall.WaitStatus {
	return syscall.WaitStatus(code << 8)
}

func signaledStatus(sig syscall.Signal) syscall.WaitStatus {
	return syscall.WaitStatus(sig)
}

func TestClassifyNormalExitOK(t *testing.T) {
	ws := exitedStatus(0)
	v := &Verdict{TimeUsedMs: 10, MemUsedBytes: 100, OutputLen: 10}
	limits := Limits{TimeLimitMs: 1000, MemoryLimitBytes: 1000, OutputLimitBytes: 1000}
	classifyWS(v, ws, nil, limits)
	if v.Status != StatusOK {
		t.Fatalf("Status = %v, want OK", v.Status)
	}
	if v.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", v.ExitCode)
	}
}

func TestClassifyTLEOnOvershoot(t *testing.T) {
	ws := exitedStatus(0)
	v := &Verdict{TimeUsedMs: 2000}
	limits := Limits{TimeLimitMs: 1000, MemoryLimitBytes: 1000, OutputLimitBytes: 1000}
	classifyWS(v, ws, nil, limits)
	if v.Status != StatusTLE {
		t.Fatalf("Status = %v, want TLE", v.Status)
	}
}

func TestClassifyMLEOnOvershoot(t *testing.T) {
	ws := exitedStatus(0)
	v := &Verdict{TimeUsedMs: 10, MemUsedBytes: 5000}
	limits := Limits{TimeLimitMs: 1000, MemoryLimitBytes: 1000, OutputLimitBytes: 1000}
	classifyWS(v, ws, nil, limits)
	if v.Status != StatusMLE {
		t.Fatalf("Status = %v, want MLE", v.Status)
	}
}

func TestClassifyOLEOnOvershoot(t *testing.T) {
	ws := exitedStatus(0)
	v := &Verdict{TimeUsedMs: 10, MemUsedBytes: 10, OutputLen: 5000}
	limits := Limits{TimeLimitMs: 1000, MemoryLimitBytes: 1000, OutputLimitBytes: 1000}
	classifyWS(v, ws, nil, limits)
	if v.Status != StatusOLE {
		t.Fatalf("Status = %v, want OLE", v.Status)
	}
}

func TestClassifyNonZeroExitIsRE(t *testing.T) {
	ws := exitedStatus(7)
	v := &Verdict{}
	limits := Limits{TimeLimitMs: 1000, MemoryLimitBytes: 1000, OutputLimitBytes: 1000}
	classifyWS(v, ws, []byte("boom"), limits)
	if v.Status != StatusRE {
		t.Fatalf("Status = %v, want RE", v.Status)
	}
	if v.ExitCode != 7 {
		t.Fatalf("ExitCode = %d, want 7", v.ExitCode)
	}
}

func TestClassifySignals(t *testing.T) {
	limits := Limits{TimeLimitMs: 1000, MemoryLimitBytes: 1000, OutputLimitBytes: 1000}

	cases := []struct {
		sig        syscall.Signal
		memUsed    int64
		wantStatus Status
	}{
		{unix.SIGXCPU, 10, StatusTLE},
		{unix.SIGKILL, 5000, StatusMLE},
		{unix.SIGKILL, 10, StatusTLE},
		{unix.SIGSEGV, 10, StatusRE},
		{unix.SIGFPE, 10, StatusRE},
		{unix.SIGABRT, 5000, StatusMLE},
		{unix.SIGABRT, 10, StatusRE},
		{unix.SIGTERM, 10, StatusRE},
	}
	for _, c := range cases {
		ws := signaledStatus(c.sig)
		v := &Verdict{MemUsedBytes: c.memUsed}
		classifyWS(v, ws, nil, limits)
		if v.Status != c.wantStatus {
			t.Errorf("signal %v: Status = %v, want %v", c.sig, v.Status, c.wantStatus)
		}
		if v.ExitCode != 128+int(c.sig) {
			t.Errorf("signal %v: ExitCode = %d, want %d", c.sig, v.ExitCode, 128+int(c.sig))
		}
	}
}
