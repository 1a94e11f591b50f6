package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Worker wraps one child scanner process. Its stdout and stderr are streamed
// line by line into the supervisor log with the scanner name attached, and
// its exit is delivered once on Exited.
type Worker struct {
	scanner string
	cmd     *exec.Cmd
	logger  *slog.Logger
	started time.Time

	exitCh chan error
	wg     sync.WaitGroup
}

// StartWorker spawns `binary args...` and begins streaming its output.
func StartWorker(scanner, binary string, args, env []string, logger *slog.Logger) (*Worker, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: stdout pipe for %s: %w", scanner, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: stderr pipe for %s: %w", scanner, err)
	}

	w := &Worker{
		scanner: scanner,
		cmd:     cmd,
		logger:  logger.With(slog.String("scanner", scanner)),
		exitCh:  make(chan error, 1),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervisor: start %s: %w", scanner, err)
	}
	w.started = time.Now()
	w.logger.Info("scanner process started", slog.Int("pid", cmd.Process.Pid))

	w.wg.Add(2)
	go w.stream(stdout, "stdout")
	go w.stream(stderr, "stderr")

	go func() {
		w.wg.Wait() // drain pipes before Wait closes them
		w.exitCh <- cmd.Wait()
	}()

	return w, nil
}

// Exited delivers the process exit result exactly once.
func (w *Worker) Exited() <-chan error {
	return w.exitCh
}

// Uptime is how long the process has been (or was) running.
func (w *Worker) Uptime() time.Duration {
	return time.Since(w.started)
}

// Pid returns the child process ID.
func (w *Worker) Pid() int {
	return w.cmd.Process.Pid
}

// Stop asks the child to exit with SIGTERM and escalates to SIGKILL after
// the grace period. It returns once the process has exited.
func (w *Worker) Stop(grace time.Duration) {
	_ = w.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-w.exitCh:
		w.logger.Info("scanner process stopped")
	case <-time.After(grace):
		w.logger.Warn("grace period elapsed, killing", slog.Int("pid", w.Pid()))
		_ = w.cmd.Process.Kill()
		<-w.exitCh
	}
}

// stream copies one child pipe into the supervisor log line by line.
func (w *Worker) stream(r io.Reader, name string) {
	defer w.wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		w.logger.Info(sc.Text(), slog.String("pipe", name))
	}
	if err := sc.Err(); err != nil {
		w.logger.Warn("output stream closed", slog.String("pipe", name), slog.String("error", err.Error()))
	}
}
