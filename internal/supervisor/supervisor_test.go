package supervisor

import (
	"testing"
	"time"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/model"
)

func newTableWithProcess(p *model.Process) (*Table, string) {
	tbl := NewTable(nil, map[string]*model.Process{"a": p})
	return tbl, "a"
}

func waitForStatus(t *testing.T, tbl *Table, root string, want model.StatusKind, timeout time.Duration) model.Status {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last model.Status
	for time.Now().Before(deadline) {
		tbl.Tick(root)
		tbl.mu.Lock()
		last = tbl.procs["a"].Status
		tbl.mu.Unlock()
		if last.Kind == want {
			return last
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %v, last=%v", want, last)
	return last
}

func TestRestartNeverDoesNotRespawn(t *testing.T) {
	root := t.TempDir()
	p := &model.Process{Cmd: "/bin/true", RestartPolicy: model.RestartNever}
	tbl, _ := newTableWithProcess(p)
	tbl.StartAll(root)
	st := waitForStatus(t, tbl, root, model.StatusExited, 2*time.Second)
	if st.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", st.ExitCode)
	}
	time.Sleep(50 * time.Millisecond)
	tbl.Tick(root)
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	if tbl.procs["a"].Status.Kind != model.StatusExited {
		t.Fatalf("expected process to remain exited under never policy, got %v", tbl.procs["a"].Status)
	}
}

func TestRestartOnFailureRespawnsOnlyOnNonzeroExit(t *testing.T) {
	root := t.TempDir()
	p := &model.Process{Cmd: "/bin/false", RestartPolicy: model.RestartOnFailure, RestartDelay: 10 * time.Millisecond}
	tbl, _ := newTableWithProcess(p)
	tbl.StartAll(root)
	waitForStatus(t, tbl, root, model.StatusExited, 2*time.Second)

	st := waitForStatus(t, tbl, root, model.StatusRunning, 2*time.Second)
	if st.PID == 0 {
		t.Fatalf("expected a pid for a running process")
	}
	tbl.mu.Lock()
	if tbl.procs["a"].Restarts != 1 {
		t.Fatalf("restarts = %d, want 1", tbl.procs["a"].Restarts)
	}
	tbl.mu.Unlock()
}

func TestForceRestartDoesNotIncrementCounter(t *testing.T) {
	root := t.TempDir()
	p := &model.Process{Cmd: "/bin/sleep", Args: []string{"2"}, RestartPolicy: model.RestartNever}
	tbl, name := newTableWithProcess(p)
	tbl.StartAll(root)
	first := waitForStatus(t, tbl, root, model.StatusRunning, time.Second)

	if err := tbl.Restart(name, root); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tbl.Tick(root)
		tbl.mu.Lock()
		st := tbl.procs[name].Status
		running := st.Kind == model.StatusRunning && st.PID != first.PID
		restarts := tbl.procs[name].Restarts
		tbl.mu.Unlock()
		if running {
			if restarts != 0 {
				t.Fatalf("force restart incremented the restart counter: %d", restarts)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("force-restarted process never came back up")
}

func TestKillMarksKilledAndExemptsFromRestart(t *testing.T) {
	root := t.TempDir()
	p := &model.Process{Cmd: "/bin/sleep", Args: []string{"2"}, RestartPolicy: model.RestartAlways}
	tbl, name := newTableWithProcess(p)
	tbl.StartAll(root)
	waitForStatus(t, tbl, root, model.StatusRunning, time.Second)

	if err := tbl.Kill(name); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	tbl.Tick(root)
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	if tbl.procs[name].Status.Kind != model.StatusKilled {
		t.Fatalf("expected Killed status, got %v", tbl.procs[name].Status)
	}
}

func TestKillUnknownProcessReturnsProcessNotFound(t *testing.T) {
	tbl := NewTable(nil, map[string]*model.Process{})
	err := tbl.Kill("missing")
	if err == nil {
		t.Fatalf("expected error for unknown process")
	}
	if ce, ok := err.(*cerr.Error); !ok || ce.Kind != cerr.KindProcessNotFound {
		t.Errorf("expected ProcessNotFound, got %v", err)
	}
}

func TestMergedEnvOverridesCapsuleEnvWithProcessEnv(t *testing.T) {
	out := mergedEnv([]string{"A=1", "TZ=America/Chicago"}, map[string]string{"TZ": "UTC", "B": "2"}, map[string]string{"B": "3"})
	got := map[string]string{}
	for _, kv := range out {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				got[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	if got["A"] != "1" || got["TZ"] != "UTC" || got["B"] != "3" {
		t.Fatalf("unexpected merged env: %+v", got)
	}
}
