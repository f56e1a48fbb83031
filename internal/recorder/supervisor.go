// SPDX-License-Identifier: MIT

// Package recorder launches and supervises the external recorder process.
// It owns the process lifetime: start, cooperative terminate, forced kill,
// and exactly-once exit reaping. Output lines are dispatched as they are
// produced, never accumulated and parsed at exit.
package recorder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/voicepick/recorderd/internal/log"
	"github.com/voicepick/recorderd/internal/procgroup"
	"github.com/voicepick/recorderd/internal/protocol"
)

// Native-library and display plumbing the SDK recorder needs regardless of
// configuration. These are infrastructure constants of the execution
// environment, not tunables.
const (
	sdkLibraryPath = "/app/meeting_sdk:/app/meeting_sdk/qt_libs/Qt/lib:/app/meeting_sdk/build:/lib:/usr/lib:/usr/lib/x86_64-linux-gnu"
	sdkBinaryPath  = "/app/meeting_sdk:/app/meeting_sdk/build"
	qtPluginPath   = "/app/meeting_sdk/qt_libs/Qt/plugins"
)

// Spec describes one recorder launch.
type Spec struct {
	// ExecPath is the recorder executable.
	ExecPath string
	// ConfigPath is passed as the sole --config argument.
	ConfigPath string
	// SDKKey and SDKSecret are handed to the recorder via its environment;
	// it derives nothing else from the environment.
	SDKKey    string
	SDKSecret string
}

// Line is one raw output line tagged with its source stream.
type Line struct {
	Stream protocol.Stream
	Text   string
}

// Handle is a live supervised recorder process. Lines delivers output as it
// arrives; Exited fires exactly once with the process exit code after all
// output has been drained.
type Handle struct {
	cmd *exec.Cmd

	lines  chan Line
	exited chan int

	killOnce sync.Once
	termOnce sync.Once
}

// Start launches the recorder with captured standard streams, in its own
// process group, non-detached. The returned handle's channels must be
// consumed; line dispatch blocks on an unread Lines channel only briefly
// (the channel is buffered) before the reader goroutines park.
func Start(spec Spec) (*Handle, error) {
	cmd := exec.Command(spec.ExecPath, "--config", spec.ConfigPath) // #nosec G204
	procgroup.Set(cmd)

	cmd.Env = append(os.Environ(),
		"MEETING_SDK_KEY="+spec.SDKKey,
		"MEETING_SDK_SECRET="+spec.SDKSecret,
		"LD_LIBRARY_PATH="+sdkLibraryPath+":"+os.Getenv("LD_LIBRARY_PATH"),
		"PATH="+sdkBinaryPath+":"+os.Getenv("PATH"),
		"QT_PLUGIN_PATH="+qtPluginPath,
		"QT_QPA_PLATFORM=offscreen",
		"DISPLAY=:99",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder: %w", err)
	}

	h := &Handle{
		cmd:    cmd,
		lines:  make(chan Line, 64),
		exited: make(chan int, 1),
	}

	var ioWg sync.WaitGroup
	ioWg.Add(2)
	go h.scan(&ioWg, protocol.Stdout, stdout)
	go h.scan(&ioWg, protocol.Stderr, stderr)

	// Reaper: wait for exit, drain IO, then report the code exactly once.
	go func() {
		waitErr := cmd.Wait()
		ioWg.Wait()
		close(h.lines)

		code := 0
		if waitErr != nil {
			code = 1
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				code = exitErr.ExitCode()
			}
		}
		h.exited <- code
		close(h.exited)
	}()

	logger := log.WithComponent("recorder")
	logger.Info().
		Int(log.FieldPID, cmd.Process.Pid).
		Str(log.FieldPath, spec.ExecPath).
		Str("config", spec.ConfigPath).
		Msg("recorder process started")

	return h, nil
}

func (h *Handle) scan(wg *sync.WaitGroup, stream protocol.Stream, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		h.lines <- Line{Stream: stream, Text: scanner.Text()}
	}
}

// Lines returns the output stream channel. It is closed after process exit
// once all output has been dispatched.
func (h *Handle) Lines() <-chan Line {
	return h.lines
}

// Exited returns the exit channel. Exactly one code is delivered, then the
// channel is closed.
func (h *Handle) Exited() <-chan int {
	return h.exited
}

// PID returns the recorder process id.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Terminate requests cooperative shutdown (SIGTERM to the process group).
func (h *Handle) Terminate() {
	h.termOnce.Do(func() {
		if err := procgroup.Kill(h.cmd, syscall.SIGTERM); err != nil {
			logger := log.WithComponent("recorder")
			logger.Warn().Err(err).
				Int(log.FieldPID, h.PID()).Msg("terminate failed")
		}
	})
}

// Kill forces immediate termination (SIGKILL to the process group).
func (h *Handle) Kill() {
	h.killOnce.Do(func() {
		if err := procgroup.Kill(h.cmd, syscall.SIGKILL); err != nil {
			logger := log.WithComponent("recorder")
			logger.Warn().Err(err).
				Int(log.FieldPID, h.PID()).Msg("kill failed")
		}
	})
}
