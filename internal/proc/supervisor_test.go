//go:build !windows

package proc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
)

// 无视-d/-f参数、长时间睡眠的假内核。
// sleep后面保留一条语句，防止shell把最后的命令exec掉导致cmdline变成sleep
const fakeKernelScript = `#!/bin/sh
sleep 60
exit 0
`

func newTestHome(t *testing.T) env.Home {
	t.Helper()
	home := env.New(t.TempDir())
	if err := home.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	return home
}

func writeFakeKernel(t *testing.T, home env.Home) (string, string) {
	t.Helper()
	binary := filepath.Join(home.Base(), "fake-kernel")
	if err := os.WriteFile(binary, []byte(fakeKernelScript), 0o755); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(home.Base(), "config.yaml")
	if err := os.WriteFile(config, []byte("port: 7890\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return binary, config
}

func TestPidRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihomo.pid")

	rec, err := readPidRecord(path)
	if err != nil || rec != nil {
		t.Fatalf("missing file should read as nil record, got %v/%v", rec, err)
	}

	want := &PidRecord{Pid: 1234, StartTime: time.Now(), BinaryPath: "/bin/x", ConfigPath: "/etc/x.yaml"}
	if err := writePidRecord(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := readPidRecord(path)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Pid != want.Pid || got.BinaryPath != want.BinaryPath {
		t.Errorf("record did not survive round trip: %+v", got)
	}

	if err := removePidRecord(path); err != nil {
		t.Fatal(err)
	}
	if err := removePidRecord(path); err != nil {
		t.Error("removing a missing record should succeed")
	}
}

func TestCorruptPidRecordTreatedAsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mihomo.pid")
	if err := os.WriteFile(path, []byte("{garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := readPidRecord(path)
	if err != nil || rec != nil {
		t.Errorf("corrupt record should read as nil, got %v/%v", rec, err)
	}
}

func TestStartStop(t *testing.T) {
	home := newTestHome(t)
	binary, config := writeFakeKernel(t, home)
	sup := NewSupervisor(home, Options{StartTimeout: 5 * time.Second})
	ctx := context.Background()

	if err := sup.Start(ctx, binary, config); err != nil {
		t.Fatal(err)
	}
	st, rec, err := sup.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != StateRunning {
		t.Fatalf("state after start = %s", st)
	}
	if rec == nil || rec.BinaryPath != binary {
		t.Fatalf("pid record should carry the binding, got %+v", rec)
	}

	// 二次启动是冲突
	if err := sup.Start(ctx, binary, config); !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("second start should conflict, got %v", err)
	}

	if err := sup.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	st, _, err = sup.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != StateStopped {
		t.Errorf("state after stop = %s", st)
	}
	if _, statErr := os.Stat(home.PidFile()); !os.IsNotExist(statErr) {
		t.Error("pid record should be removed after stop")
	}
}

func TestStopIsNoopWhenStopped(t *testing.T) {
	home := newTestHome(t)
	sup := NewSupervisor(home, Options{})
	if err := sup.Stop(context.Background()); err != nil {
		t.Errorf("stop on a stopped service should succeed, got %v", err)
	}
}

func TestStaleRecordMarksCrashed(t *testing.T) {
	home := newTestHome(t)
	binary, config := writeFakeKernel(t, home)

	// 伪造一条指向已死PID的记录
	stale := &PidRecord{Pid: 999999, StartTime: time.Now(), BinaryPath: binary, ConfigPath: config}
	if err := writePidRecord(home.PidFile(), stale); err != nil {
		t.Fatal(err)
	}

	sup := NewSupervisor(home, Options{StartTimeout: 5 * time.Second})
	st, err := sup.Reconcile()
	if err != nil {
		t.Fatal(err)
	}
	if st != StateCrashed {
		t.Fatalf("stale record should reconcile to crashed, got %s", st)
	}
	if _, statErr := os.Stat(home.PidFile()); !os.IsNotExist(statErr) {
		t.Error("stale pid record should be cleaned up")
	}

	// Crashed是粘滞的，再次对账仍是Crashed
	if st, _ = sup.Reconcile(); st != StateCrashed {
		t.Errorf("crashed state should stick until acknowledged, got %s", st)
	}

	// Start确认崩溃并继续
	ctx := context.Background()
	if err := sup.Start(ctx, binary, config); err != nil {
		t.Fatal(err)
	}
	defer sup.Stop(ctx)
	if st, _, _ := sup.Status(ctx); st != StateRunning {
		t.Errorf("start after crash should run, got %s", st)
	}
}

func TestStopAcknowledgesCrash(t *testing.T) {
	home := newTestHome(t)
	stale := &PidRecord{Pid: 999999, StartTime: time.Now(), BinaryPath: "/bin/x", ConfigPath: "/etc/x"}
	if err := writePidRecord(home.PidFile(), stale); err != nil {
		t.Fatal(err)
	}

	sup := NewSupervisor(home, Options{})
	if st, _ := sup.Reconcile(); st != StateCrashed {
		t.Fatal("precondition: state should be crashed")
	}
	if err := sup.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st, _ := sup.Reconcile(); st != StateStopped {
		t.Errorf("stop should acknowledge the crash, got %s", st)
	}
}

func TestAdoptExistingProcess(t *testing.T) {
	home := newTestHome(t)
	binary, config := writeFakeKernel(t, home)
	ctx := context.Background()

	first := NewSupervisor(home, Options{StartTimeout: 5 * time.Second})
	if err := first.Start(ctx, binary, config); err != nil {
		t.Fatal(err)
	}

	// 新的监督器实例(模拟下一次CLI调用)通过记录接管同一进程
	second := NewSupervisor(home, Options{})
	st, rec, err := second.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != StateRunning || rec == nil {
		t.Fatalf("second supervisor should adopt the running process, got %s/%v", st, rec)
	}
	if err := second.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestStartFailsOnBadBinary(t *testing.T) {
	home := newTestHome(t)
	sup := NewSupervisor(home, Options{StartTimeout: 2 * time.Second})

	err := sup.Start(context.Background(), filepath.Join(home.Base(), "missing"), "/etc/x")
	if !errs.IsKind(err, errs.KindProcess) {
		t.Errorf("spawning a missing binary should yield process error, got %v", err)
	}
	if st, _ := sup.Reconcile(); st != StateStopped {
		t.Errorf("failed start should leave state stopped, got %s", st)
	}
}

func TestWatchDetectsCrash(t *testing.T) {
	home := newTestHome(t)
	// 很快退出的假内核
	binary := filepath.Join(home.Base(), "flaky-kernel")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\nsleep 1\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(home.Base(), "config.yaml")
	if err := os.WriteFile(config, []byte("port: 7890\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	exited := make(chan PidRecord, 1)
	sup := NewSupervisor(home, Options{
		StartTimeout: 5 * time.Second,
		OnExit:       func(rec PidRecord) { exited <- rec },
	})
	if err := sup.Start(context.Background(), binary, config); err != nil {
		t.Fatal(err)
	}

	select {
	case rec := <-exited:
		if rec.BinaryPath != binary {
			t.Errorf("exit callback got wrong record: %+v", rec)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("exit callback was not invoked")
	}
	if st, _ := sup.Reconcile(); st != StateCrashed {
		t.Errorf("unexpected exit should mark crashed, got %s", st)
	}
}
