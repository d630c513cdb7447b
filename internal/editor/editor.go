// Package editor lets the user change a document in their text editor.
package editor

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Editor runs an external editor command on a file.
type Editor struct {
	// Command is the editor command line; the file name is appended.
	Command string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// Default picks the editor from $VISUAL, then $EDITOR, then vi.
func Default() *Editor {
	cmd := os.Getenv("VISUAL")
	if cmd == "" {
		cmd = os.Getenv("EDITOR")
	}
	if cmd == "" {
		cmd = "vi"
	}
	return &Editor{Command: cmd, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Edit writes data to a temporary file, opens it in the editor and returns
// the saved content. changed is false when the content was left as is.
func (e *Editor) Edit(data []byte, suffix string) (edited []byte, changed bool, err error) {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return nil, false, errors.New("no editor configured")
	}

	tmp, err := os.CreateTemp("", "fmsyaml-*"+suffix)
	if err != nil {
		return nil, false, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, false, err
	}
	if err := tmp.Close(); err != nil {
		return nil, false, err
	}

	cmd := exec.Command(fields[0], append(fields[1:], tmp.Name())...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.Stdin, e.Stdout, e.Stderr
	if err := cmd.Run(); err != nil {
		return nil, false, err
	}

	edited, err = os.ReadFile(tmp.Name())
	if err != nil {
		return nil, false, err
	}
	return edited, !bytes.Equal(edited, data), nil
}
