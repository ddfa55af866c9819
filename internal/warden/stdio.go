package warden

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wardenrun/warden/internal/virtfs"
)

// stdio holds the concrete stream bindings of one execution. A nil reader or
// writer leaves the guest stream disconnected, which the engine maps to an
// immediate end-of-stream for stdin and to a sink for outputs.
type stdio struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	files  []*os.File
}

// bindStdio resolves a stdio policy against the workload file system and the
// host, opening the host files the policy names. On error, any file already
// opened is closed before returning.
func bindStdio(policy StdioPolicy, fsys *virtfs.FS) (*stdio, error) {
	s := new(stdio)
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	switch policy.Stdin.Kind {
	case StreamBundle:
		node, found := fsys.Lookup(policy.Stdin.Path)
		if !found {
			return nil, fmt.Errorf("%w: stdin: %s not found in bundle", ErrConfiguration, policy.Stdin.Path)
		}
		file, isFile := node.(*virtfs.File)
		if !isFile {
			return nil, fmt.Errorf("%w: stdin: %s is a directory", ErrConfiguration, policy.Stdin.Path)
		}
		s.stdin = file.Open()
	case StreamFile:
		f, err := os.Open(policy.Stdin.Path)
		if err != nil {
			return nil, fmt.Errorf("opening stdin: %w", err)
		}
		s.files = append(s.files, f)
		s.stdin = f
	case StreamInherit:
		s.stdin = os.Stdin
	}

	var err error
	if s.stdout, err = s.bindOutput(policy.Stdout, os.Stdout, "stdout"); err != nil {
		return nil, err
	}
	if s.stderr, err = s.bindOutput(policy.Stderr, os.Stderr, "stderr"); err != nil {
		return nil, err
	}
	ok = true
	return s, nil
}

func (s *stdio) bindOutput(policy OutputPolicy, inherited *os.File, name string) (io.Writer, error) {
	switch policy.Kind {
	case StreamFile:
		f, err := os.OpenFile(policy.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		s.files = append(s.files, f)
		return f, nil
	case StreamInherit:
		return inherited, nil
	case StreamBundle:
		return nil, fmt.Errorf("%w: %s: bundle sources only apply to stdin", ErrConfiguration, name)
	default:
		return nil, nil
	}
}

// Close releases the host files opened for the execution.
func (s *stdio) Close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
