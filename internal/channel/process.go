package channel

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// maxCapturedOutput bounds how much harness stdout/stderr is retained for
// startup-failure diagnostics.
const maxCapturedOutput = 64 * 1024

// process wraps the spawned harness with exit tracking and bounded output
// capture. The channel is the only owner allowed to terminate it.
type process struct {
	cmd *exec.Cmd
	out *boundedBuffer

	done chan struct{}

	mu       sync.Mutex
	exitCode int
	hasExit  bool
}

// spawn launches argv with the given working directory and extra environment,
// placing it in its own process group so the whole tree can be signalled.
func spawn(argv []string, dir string, env map[string]string) (*process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no harness command configured")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out := &boundedBuffer{limit: maxCapturedOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	p := &process{cmd: cmd, out: out, done: make(chan struct{})}
	go p.reap()
	return p, nil
}

// reap waits for the process and records its exit code.
func (p *process) reap() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.hasExit = true
	if exitErr, ok := err.(*exec.ExitError); ok {
		p.exitCode = exitErr.ExitCode()
	} else if err == nil && p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	} else if err != nil {
		p.exitCode = -1
	}
	p.mu.Unlock()

	close(p.done)
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// exited reports whether the process has exited and its exit code.
func (p *process) exited() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasExit, p.exitCode
}

// output returns the captured combined stdout/stderr.
func (p *process) output() string {
	return p.out.String()
}

// terminate sends SIGTERM to the process group, waits up to grace, then
// SIGKILLs whatever is left. Safe to call on an already dead process.
func (p *process) terminate(grace time.Duration) {
	if exited, _ := p.exited(); exited {
		return
	}
	pid := p.pid()
	if pid == 0 {
		return
	}

	p.signal(pid, syscall.SIGTERM)

	select {
	case <-p.done:
		return
	case <-time.After(grace):
	}

	p.signal(pid, syscall.SIGKILL)
	<-p.done
}

// signal delivers sig to the process group, falling back to the single
// process when no group exists.
func (p *process) signal(pid int, sig syscall.Signal) {
	if runtime.GOOS == "windows" {
		p.cmd.Process.Kill()
		return
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		syscall.Kill(pid, sig)
	}
}

// boundedBuffer captures writes up to a fixed limit, discarding the rest.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(data)
	room := b.limit - len(b.buf)
	if room > 0 {
		if n < room {
			room = n
		}
		b.buf = append(b.buf, data[:room]...)
	}
	if room < n {
		b.truncated = true
	}
	return n, nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return string(b.buf) + "\n(output truncated)"
	}
	return string(b.buf)
}
