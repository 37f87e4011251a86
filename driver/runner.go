package driver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes a command and returns its exit code and combined output
// lines. With allowFailure unset, a nonzero exit is reported as an
// *ExecutionError alongside the code and output.
type Runner interface {
	Run(command []string, allowFailure bool) (int, []string, error)
}

// ExecRunner runs commands as child processes in the current working
// directory. Stdout and stderr are merged and read one line at a time; each
// line goes to Sink as soon as it is read, so long driver runs show progress.
type ExecRunner struct {
	// Sink receives every output line at debug level. Nil uses the standard logger.
	Sink *logrus.Logger
}

// NewExecRunner returns an ExecRunner that streams to sink.
func NewExecRunner(sink *logrus.Logger) *ExecRunner {
	return &ExecRunner{Sink: sink}
}

// Run blocks until the process exits.
func (r *ExecRunner) Run(command []string, allowFailure bool) (int, []string, error) {
	if len(command) == 0 {
		return -1, nil, &ExecutionError{ExitCode: -1, Err: errors.New("empty command")}
	}
	sink := r.Sink
	if sink == nil {
		sink = logrus.StandardLogger()
	}

	cmd := exec.Command(command[0], command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, nil, &ExecutionError{Command: command, ExitCode: -1, Err: fmt.Errorf("creating output pipe: %w", err)}
	}
	// StdoutPipe set cmd.Stdout to the write end; share it so stderr interleaves.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return -1, nil, &ExecutionError{Command: command, ExitCode: -1, Err: fmt.Errorf("failed to start command: %w", err)}
	}

	output, readErr := streamOutput(stdout, sink)
	waitErr := cmd.Wait()

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, output, &ExecutionError{Command: command, ExitCode: -1, Err: fmt.Errorf("failed to execute command: %w", waitErr)}
		}
		exitCode = exitErr.ExitCode()
	}
	if readErr != nil {
		return exitCode, output, &ExecutionError{Command: command, ExitCode: exitCode, Err: fmt.Errorf("reading command output: %w", readErr)}
	}
	if exitCode != 0 && !allowFailure {
		return exitCode, output, &ExecutionError{Command: command, ExitCode: exitCode}
	}
	return exitCode, output, nil
}

// streamOutput streams r through streamLines. On a read error the rest of r is
// discarded so the child never blocks on a full pipe before Wait.
func streamOutput(r io.Reader, sink *logrus.Logger) ([]string, error) {
	output, err := streamLines(r, sink)
	if err != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return output, err
}

// streamLines reads r to EOF, logging and collecting one entry per line.
func streamLines(r io.Reader, sink *logrus.Logger) ([]string, error) {
	var output []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			sink.Debug(line)
			output = append(output, line)
		}
		if errors.Is(err, io.EOF) {
			return output, nil
		}
		if err != nil {
			return output, err
		}
	}
}
