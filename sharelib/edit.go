package sharelib

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creachadair/mds/mdiff"
	"github.com/creachadair/mds/mstr"
	"golang.org/x/term"
	yaml "gopkg.in/yaml.v3"
)

var (
	// ErrNoChange is reported by Edit if the resulting value did not change.
	ErrNoChange = errors.New("input was not changed")

	// ErrUserReject is reported by Edit if the user rejected the changes.
	ErrUserReject = errors.New("the user rejected the edits")
)

// Edit renders value as YAML in a file named name, and runs the editor named
// by $EDITOR (default vi) on it. If the file was changed, the user is shown a
// diff and asked to confirm the changes at the terminal. On confirmation, the
// edited file is decoded into a new value, which is returned.
//
// If the edit did not change the input, Edit returns (value, ErrNoChange).
// If the user rejected the changes, Edit returns (value, ErrUserReject).
func Edit[T any](ctx context.Context, name string, value T) (T, error) {
	var out T

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return out, fmt.Errorf("marshal value: %w", err)
	}

	// Edit in a fresh directory so the editor shows a clean file name.
	dir, err := os.MkdirTemp("", "opshare-edit*")
	if err != nil {
		return out, err
	}
	defer os.RemoveAll(dir)

	epath := filepath.Join(dir, name)
	if err := os.WriteFile(epath, buf.Bytes(), 0600); err != nil {
		return out, err
	}

	editor := cmp.Or(os.Getenv("EDITOR"), "vi")
	cmd := exec.CommandContext(ctx, editor, name)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return out, fmt.Errorf("editor failed: %w", err)
	}

	edited, err := os.ReadFile(epath)
	if err != nil {
		return out, fmt.Errorf("read editor output: %w", err)
	}
	diff := mdiff.New(mstr.Lines(buf.String()), mstr.Lines(string(edited)))
	if len(diff.Chunks) == 0 {
		return value, ErrNoChange
	}

	ok, err := confirmDiff(diff)
	if err != nil {
		return out, err
	} else if !ok {
		return value, ErrUserReject
	}
	if err := yaml.Unmarshal(edited, &out); err != nil {
		return out, fmt.Errorf("decode edited value: %w", err)
	}
	return out, nil
}

// confirmDiff shows diff at the terminal and asks the user to accept it.
func confirmDiff(diff *mdiff.Diff) (bool, error) {
	fd := int(os.Stdin.Fd())
	oldst, err := term.MakeRaw(fd)
	if err != nil {
		return false, err
	}
	defer term.Restore(fd, oldst)
	vt := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")

	diff.AddContext(3).Unify().Format(vt, mdiff.Unified, nil)
	for {
		fmt.Fprint(vt, "▷ Keep changes? (y/n) ")
		ln, err := vt.ReadLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(ln)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(vt, "** Please enter y(es) or n(o)")
		}
	}
}
