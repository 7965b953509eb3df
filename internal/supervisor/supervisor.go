// Package supervisor runs the single-threaded process table: it spawns
// every declared child, reaps exited ones without blocking, and
// restarts them according to each process's restart policy. A single
// cooperative loop polls every child's exit without blocking (each
// child has a small goroutine that waits on it and posts the result to
// a channel, which the loop reads with a non-blocking receive), and
// restart decisions follow a
// three-way never/always/on_failure policy with an explicit
// force-restart path that bypasses it.
package supervisor

import (
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/model"
	"github.com/capsulenv/capsulenv/internal/procmetrics"
)

// TailSleep is how long the cooperative loop blocks when there is
// nothing to do: no pending datagram, nothing to reap.
const TailSleep = 10 * time.Millisecond

// RunningProcess is one child's live bookkeeping: its declared Process,
// the exec.Cmd currently backing it (nil while waiting out a restart
// delay), its Status, and the restart counter that only a
// policy-driven restart (never a force_restart) increments.
type RunningProcess struct {
	Name    string
	Proc    *model.Process
	Cmd     *exec.Cmd
	Status  model.Status
	Started time.Time

	Restarts int

	waitCh       chan waitResult
	forceRestart bool
	restartAt    time.Time
}

type waitResult struct {
	err error
}

// Table is the supervisor's process table: one RunningProcess per
// declared name, guarded by a mutex. The control protocol server
// answers control requests from the same loop goroutine that reaps;
// the per-child goroutines that wait for exit only post to their own
// channel and never touch the table.
type Table struct {
	mu    sync.Mutex
	procs map[string]*RunningProcess
	env   map[string]string // capsule-level env, merged under per-process env
}

// NewTable builds an empty table seeded with the capsule's declared
// processes, none yet started.
func NewTable(capsuleEnv map[string]string, processes map[string]*model.Process) *Table {
	t := &Table{
		procs: make(map[string]*RunningProcess, len(processes)),
		env:   capsuleEnv,
	}
	for name, p := range processes {
		t.procs[name] = &RunningProcess{Name: name, Proc: p, Status: model.Starting()}
	}
	return t
}

// StartAll spawns every process currently in Starting status.
func (t *Table) StartAll(rootDir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, rp := range t.procs {
		if rp.Status.Kind == model.StatusStarting {
			t.spawnLocked(name, rp, rootDir)
		}
	}
}

// Tick runs one cooperative iteration: reap any child that has exited
// (non-blocking), restart children whose restart delay has elapsed,
// and return the pids of every currently running child (for metrics
// refresh).
func (t *Table) Tick(rootDir string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pids []int
	for name, rp := range t.procs {
		if rp.Status.Kind == model.StatusRunning {
			if res, ok := tryWait(rp); ok {
				t.handleExitLocked(name, rp, res.err)
			} else {
				pids = append(pids, rp.Status.PID)
			}
			continue
		}
		if rp.Status.Kind == model.StatusExited && !rp.restartAt.IsZero() && !time.Now().Before(rp.restartAt) {
			rp.restartAt = time.Time{}
			t.spawnLocked(name, rp, rootDir)
		}
	}
	return pids
}

// tryWait polls the child's exit without blocking: cmd.Wait() runs on
// its own goroutine and posts to a channel, read here with
// select/default instead of being awaited synchronously, so one
// cooperative loop can poll every child in turn.
func tryWait(rp *RunningProcess) (waitResult, bool) {
	select {
	case res := <-rp.waitCh:
		return res, true
	default:
		return waitResult{}, false
	}
}

func (t *Table) handleExitLocked(name string, rp *RunningProcess, waitErr error) {
	code := exitCode(waitErr)
	rp.Status = model.Exited(code)
	rp.Cmd = nil

	if rp.forceRestart {
		rp.forceRestart = false
		rp.restartAt = time.Now()
		return
	}

	restart := false
	switch rp.Proc.RestartPolicy {
	case model.RestartAlways:
		restart = true
	case model.RestartOnFailure:
		restart = code != 0
	case model.RestartNever:
		restart = false
	}
	if !restart {
		return
	}
	rp.Restarts++
	rp.restartAt = time.Now().Add(rp.Proc.EffectiveRestartDelay())
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if !asExitError(err, &ee) {
		return model.SignalExitCode
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return model.SignalExitCode
		}
		return ws.ExitStatus()
	}
	return ee.ExitCode()
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

func (t *Table) spawnLocked(name string, rp *RunningProcess, rootDir string) {
	cwd := rootDir + "/" + rp.Proc.EffectiveCwd(name)
	if err := os.MkdirAll(cwd, 0o755); err != nil {
		rp.Status = model.Exited(model.SignalExitCode)
		return
	}
	cmd := exec.Command(rp.Proc.Cmd, rp.Proc.Args...)
	cmd.Dir = cwd
	cmd.Env = mergedEnv(os.Environ(), t.env, rp.Proc.Env)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		rp.Status = model.Exited(model.SignalExitCode)
		return
	}
	rp.Cmd = cmd
	rp.Started = time.Now()
	rp.Status = model.Running(cmd.Process.Pid)
	rp.waitCh = make(chan waitResult, 1)
	go func(c *exec.Cmd, ch chan waitResult) {
		ch <- waitResult{err: c.Wait()}
	}(cmd, rp.waitCh)
}

// Kill sends the process a kill signal and marks it Killed, which
// exempts it from restart/reap until a future Restart command moves it
// out of Killed again.
func (t *Table) Kill(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rp, ok := t.procs[name]
	if !ok {
		return cerr.ProcessNotFound(name)
	}
	if rp.Cmd != nil && rp.Cmd.Process != nil {
		if err := rp.Cmd.Process.Kill(); err != nil {
			return cerr.CouldNotKillProcess(name)
		}
	}
	rp.Status = model.Killed()
	rp.restartAt = time.Time{}
	return nil
}

// KillAll kills every process in the table.
func (t *Table) KillAll() {
	t.mu.Lock()
	names := make([]string, 0, len(t.procs))
	for name := range t.procs {
		names = append(names, name)
	}
	t.mu.Unlock()
	for _, name := range names {
		_ = t.Kill(name)
	}
}

// Restart force-restarts name, regardless of its restart policy and
// without incrementing the restart counter: a running process is killed
// and relaunched by the loop once it observes the exit; a process in any
// other status is spawned again at once.
func (t *Table) Restart(name string, rootDir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rp, ok := t.procs[name]
	if !ok {
		return cerr.ProcessNotFound(name)
	}
	switch rp.Status.Kind {
	case model.StatusRunning:
		if rp.Cmd != nil && rp.Cmd.Process != nil {
			_ = rp.Cmd.Process.Kill()
		}
		rp.forceRestart = true
	default:
		t.spawnLocked(name, rp, rootDir)
	}
	return nil
}

// List returns a snapshot of every process's current status, enriched
// with the most recently cached resource metrics for processes that
// are currently running.
func (t *Table) List(metrics *procmetrics.Cache) []model.ListEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ListEntry, 0, len(t.procs))
	for name, rp := range t.procs {
		entry := model.ListEntry{
			Name:     name,
			Status:   rp.Status,
			Restarts: uint32(rp.Restarts),
		}
		if rp.Status.Kind == model.StatusRunning && metrics != nil {
			snap := metrics.Get(rp.Status.PID)
			entry.CPUPercent = snap.CPUPercent
			entry.MemoryBytes = snap.MemoryBytes
			entry.DiskReadBytes = snap.DiskReadBytes
			entry.DiskWriteBytes = snap.DiskWriteBytes
			entry.RuntimeSeconds = snap.RuntimeSeconds
		}
		out = append(out, entry)
	}
	return out
}

func mergedEnv(base []string, capsuleEnv, procEnv map[string]string) []string {
	idx := make(map[string]int, len(base))
	out := append([]string(nil), base...)
	for i, kv := range out {
		if k, _, ok := strings.Cut(kv, "="); ok {
			idx[k] = i
		}
	}
	set := func(k, v string) {
		kv := k + "=" + v
		if i, ok := idx[k]; ok {
			out[i] = kv
		} else {
			idx[k] = len(out)
			out = append(out, kv)
		}
	}
	for k, v := range capsuleEnv {
		set(k, v)
	}
	for k, v := range procEnv {
		set(k, v)
	}
	return out
}
