package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/wagiedev/claude-session-go/internal/errors"
)

// DefaultCommand is the peer executable looked up when none is configured.
const DefaultCommand = "claude"

// maxStderrBufferSize caps the stderr kept for ProcessError reports. The
// Stderr callback still sees every line past the cap.
const maxStderrBufferSize = 10 * 1024 * 1024

// maxStderrLineSize truncates a single stderr line.
const maxStderrLineSize = 64 * 1024

// ProcessConfig describes how to launch the peer process.
type ProcessConfig struct {
	// Command is an executable name or path. Empty means DefaultCommand.
	Command string
	Args    []string
	// Env is added on top of the current environment.
	Env map[string]string
	// Cwd is the working directory. Empty inherits ours.
	Cwd string
	// Stderr, if set, receives each stderr line.
	Stderr func(line string)
}

// ProcessTransport runs the peer as a child process and exchanges lines
// over its stdin and stdout.
type ProcessTransport struct {
	log *slog.Logger
	cfg ProcessConfig
	in  lineWriter

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  io.ReadCloser
	taken   bool
	closing bool
}

// Compile-time verification that ProcessTransport implements Transport.
var _ Transport = (*ProcessTransport)(nil)

// NewProcessTransport creates a transport for cfg. Nothing is started
// until Connect.
func NewProcessTransport(log *slog.Logger, cfg ProcessConfig) *ProcessTransport {
	log = log.With("component", "process_transport")

	return &ProcessTransport{
		log: log,
		cfg: cfg,
		in:  lineWriter{log: log},
	}
}

// Connect locates and starts the peer. A missing executable yields an
// *errors.CLINotFoundError.
func (t *ProcessTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing {
		return errors.ErrConnectionClosed
	}

	if t.cmd != nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := findCommand(t.log, t.cfg.Command)
	if err != nil {
		return err
	}

	// The process must outlive ctx; Close owns its lifetime.
	//nolint:gosec // G204: launching the configured peer is the point
	cmd := exec.Command(path, t.cfg.Args...)
	cmd.Dir = t.cfg.Cwd
	cmd.Env = buildEnv(t.cfg.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.TransportError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.TransportError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.TransportError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start peer process", "error", err)

		return &errors.TransportError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.stdout = stdout
	t.stderr = stderr
	t.in.attach(stdin)

	t.log.Info("Peer process started", "path", path, "pid", cmd.Process.Pid)

	return nil
}

// Write sends one line to the peer's stdin.
func (t *ProcessTransport) Write(ctx context.Context, data []byte) error {
	return t.in.write(ctx, data)
}

// ReadFrames starts reading the peer's stdout. When stdout ends the
// process is reaped; an abnormal exit that was not caused by Close is
// delivered as a terminal *errors.ProcessError frame.
func (t *ProcessTransport) ReadFrames(ctx context.Context) (<-chan Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil {
		return nil, errors.ErrTransportNotConnected
	}

	if t.taken {
		return nil, &errors.InternalError{Message: "ReadFrames called twice", Err: errors.ErrInboundTaken}
	}

	t.taken = true

	frames := make(chan Frame)

	var (
		stderrWg  sync.WaitGroup
		stderrMu  sync.Mutex
		stderrBuf strings.Builder
	)

	// Stderr must be fully drained before cmd.Wait.
	stderrWg.Go(func() {
		reader := bufio.NewReader(t.stderr)

		for {
			raw, _, err := readLine(reader, maxStderrLineSize)
			if err != nil && len(raw) == 0 {
				if err != io.EOF {
					t.log.Debug("Stderr read error", "error", err)
				}

				return
			}

			line := string(raw)

			stderrMu.Lock()
			if stderrBuf.Len() < maxStderrBufferSize {
				if stderrBuf.Len() > 0 {
					stderrBuf.WriteByte('\n')
				}

				stderrBuf.WriteString(line)
			}
			stderrMu.Unlock()

			if t.cfg.Stderr != nil {
				t.cfg.Stderr(line)
			}

			if err != nil {
				return
			}
		}
	})

	go func() {
		defer close(frames)
		defer t.log.Debug("Process reader stopped")

		readErr := scanFrames(ctx, t.log, t.stdout, frames)
		if readErr != nil && !t.isClosing() {
			// Report now: cmd.Wait blocks until the peer exits.
			t.log.Error("Peer stdout read failed", "error", readErr)

			emit(ctx, frames, Frame{Err: &errors.TransportError{Err: readErr}})
		}

		stderrWg.Wait()

		waitErr := t.cmd.Wait()

		if t.isClosing() {
			t.log.Debug("Peer process ended during shutdown")

			return
		}

		if readErr != nil {
			return
		}

		switch {
		case waitErr != nil:
			exitCode := -1
			if exitErr, ok := stderrors.AsType[*exec.ExitError](waitErr); ok {
				exitCode = exitErr.ExitCode()
			}

			stderrMu.Lock()
			output := strings.TrimSpace(stderrBuf.String())
			stderrMu.Unlock()

			t.log.Error("Peer process exited with error", "exit_code", exitCode, "stderr", output)

			emit(ctx, frames, Frame{Err: &errors.ProcessError{ExitCode: exitCode, Stderr: output, Err: waitErr}})

		default:
			t.log.Info("Peer process exited")
		}
	}()

	return frames, nil
}

// EndInput closes the peer's stdin. The peer is expected to finish its
// work and exit.
func (t *ProcessTransport) EndInput() error {
	return t.in.close()
}

// IsReady reports whether the process is running and stdin is open.
func (t *ProcessTransport) IsReady() bool {
	t.mu.Lock()
	started := t.cmd != nil && !t.closing
	t.mu.Unlock()

	return started && t.in.ready()
}

// Close closes stdin and kills the process. Safe to call more than once.
func (t *ProcessTransport) Close() error {
	t.mu.Lock()

	if t.closing {
		t.mu.Unlock()

		return nil
	}

	t.closing = true
	cmd := t.cmd
	t.mu.Unlock()

	_ = t.in.close()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	t.log.Debug("Killing peer process", "pid", cmd.Process.Pid)

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill peer process (pid %d): %w", cmd.Process.Pid, err)
	}

	return nil
}

func (t *ProcessTransport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closing
}

// findCommand resolves the peer executable. A name containing a path
// separator is used as given; a bare name is searched on PATH and then in
// the usual install directories.
func findCommand(log *slog.Logger, command string) (string, error) {
	if command == "" {
		command = DefaultCommand
	}

	if strings.ContainsRune(command, os.PathSeparator) {
		if _, err := os.Stat(command); err != nil {
			return "", &errors.CLINotFoundError{Path: command, Err: err}
		}

		return command, nil
	}

	path, lookErr := exec.LookPath(command)
	if lookErr == nil {
		return path, nil
	}

	candidates := []string{filepath.Join("/usr/local/bin", command), filepath.Join("/usr/bin", command)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".local", "bin", command))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			log.Debug("Found peer outside PATH", "path", candidate)

			return candidate, nil
		}
	}

	log.Warn("Peer executable not found", "command", command, "searched", candidates)

	return "", &errors.CLINotFoundError{Path: command, Err: lookErr}
}

// buildEnv layers extra on top of the current environment in key order.
func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for _, key := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, key+"="+extra[key])
	}

	return env
}
