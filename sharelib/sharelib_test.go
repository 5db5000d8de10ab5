package sharelib_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/opshare/opcli"
	"github.com/creachadair/opshare/sharelib"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const (
	testLink     = "https://share.1password.com/s#test-link-0123"
	noteTemplate = `{"category":"SECURE_NOTE","fields":[{"id":"notesPlain","type":"STRING","value":""}]}`
)

// scriptOP is a fake op tool that replies based on the leading arguments of
// each command.
type scriptOP struct {
	calls   []string
	replies map[string]string
	fail    map[string]error
}

func newScriptOP() *scriptOP {
	return &scriptOP{
		replies: map[string]string{
			"account list":  `[{"email":"alice@example.com"}]`,
			"vault get":     `{"id":"v1","name":"Shared Notes"}`,
			"item template": noteTemplate,
			"item create":   `{"id":"item1","title":"t","vault":{"id":"v1","name":"Shared Notes"}}`,
			"item share":    testLink + "\n",
		},
		fail: make(map[string]error),
	}
}

func (s *scriptOP) exec(_ context.Context, args ...string) ([]byte, error) {
	s.calls = append(s.calls, strings.Join(args, " "))
	key := strings.Join(args[:min(2, len(args))], " ")
	if err, ok := s.fail[key]; ok {
		return nil, err
	}
	return []byte(s.replies[key]), nil
}

func (s *scriptOP) commands() []string {
	var out []string
	for _, c := range s.calls {
		f := strings.Fields(c)
		out = append(out, strings.Join(f[:min(2, len(f))], " "))
	}
	return out
}

func testRequest() sharelib.Request {
	return sharelib.Request{
		Note:      "API_KEY=hunter2\n",
		Title:     "[demo] - 01.02.2025",
		Vault:     "Shared Notes",
		ExpiresIn: "7d",
	}
}

func TestShare(t *testing.T) {
	op := newScriptOP()
	c := &opcli.Client{Exec: op.exec}

	start := time.Now()
	res, err := sharelib.Share(context.Background(), c, testRequest())
	if err != nil {
		t.Fatalf("Share: unexpected error: %v", err)
	}
	if res.Link != testLink {
		t.Errorf("Share link: got %q, want %q", res.Link, testLink)
	}
	if res.Item.ID != "item1" {
		t.Errorf("Share item ID: got %q, want %q", res.Item.ID, "item1")
	}
	if res.VaultCreated {
		t.Error("Share reported creating an existing vault")
	}
	if lo, hi := start.Add(7*24*time.Hour), time.Now().Add(7*24*time.Hour); res.Expires.Before(lo) || res.Expires.After(hi) {
		t.Errorf("Share expiry %v not in [%v, %v]", res.Expires, lo, hi)
	}

	want := []string{"account list", "vault get", "item template", "item create", "item share"}
	if diff := cmp.Diff(want, op.commands()); diff != "" {
		t.Errorf("Commands (-want, +got):\n%s", diff)
	}
	if got, want := op.calls[len(op.calls)-1], "item share item1 --vault Shared Notes --expires-in 7d"; got != want {
		t.Errorf("Share command: got %q, want %q", got, want)
	}
}

func TestShareEmails(t *testing.T) {
	op := newScriptOP()
	c := &opcli.Client{Exec: op.exec}

	req := testRequest()
	req.Emails = []string{"bob@example.com", "carol@example.com"}
	req.ViewOnce = true
	if _, err := sharelib.Share(context.Background(), c, req); err != nil {
		t.Fatalf("Share: unexpected error: %v", err)
	}
	const want = "item share item1 --vault Shared Notes --expires-in 7d " +
		"--emails bob@example.com --emails carol@example.com --view-once"
	if got := op.calls[len(op.calls)-1]; got != want {
		t.Errorf("Share command: got %q, want %q", got, want)
	}
}

func TestShareCreatesVault(t *testing.T) {
	op := newScriptOP()
	op.fail["vault get"] = &opcli.CommandError{ExitCode: 1}
	c := &opcli.Client{Exec: op.exec}

	res, err := sharelib.Share(context.Background(), c, testRequest())
	if err != nil {
		t.Fatalf("Share: unexpected error: %v", err)
	}
	if !res.VaultCreated {
		t.Error("Share did not report creating the vault")
	}
	want := []string{"account list", "vault get", "vault create", "item template", "item create", "item share"}
	if diff := cmp.Diff(want, op.commands()); diff != "" {
		t.Errorf("Commands (-want, +got):\n%s", diff)
	}
}

func TestShareErrors(t *testing.T) {
	t.Run("NotSignedIn", func(t *testing.T) {
		op := newScriptOP()
		op.fail["account list"] = &opcli.CommandError{ExitCode: 1}
		c := &opcli.Client{Exec: op.exec}
		_, err := sharelib.Share(context.Background(), c, testRequest())
		if !errors.Is(err, opcli.ErrNotSignedIn) {
			t.Errorf("Share: got %v, want %v", err, opcli.ErrNotSignedIn)
		}
		if len(op.calls) != 1 {
			t.Errorf("Share ran %d commands after failed account check, want 1", len(op.calls))
		}
	})
	t.Run("BadExpiry", func(t *testing.T) {
		op := newScriptOP()
		c := &opcli.Client{Exec: op.exec}
		req := testRequest()
		req.ExpiresIn = "7 days"
		if _, err := sharelib.Share(context.Background(), c, req); err == nil {
			t.Error("Share: got nil error for invalid expiry")
		}
		if len(op.calls) != 0 {
			t.Errorf("Share ran commands for an invalid request: %q", op.calls)
		}
	})
	t.Run("ShareFailed", func(t *testing.T) {
		op := newScriptOP()
		op.fail["item share"] = &opcli.CommandError{ExitCode: 1, Stderr: "forbidden"}
		c := &opcli.Client{Exec: op.exec}
		res, err := sharelib.Share(context.Background(), c, testRequest())
		var cerr *opcli.CommandError
		if !errors.As(err, &cerr) {
			t.Fatalf("Share: got %v, want *CommandError", err)
		}
		if res.Item.ID != "item1" {
			t.Errorf("Share: got item %q, want the created item reported", res.Item.ID)
		}
	})
	t.Run("MalformedLink", func(t *testing.T) {
		op := newScriptOP()
		op.replies["item share"] = "something went sideways\n"
		c := &opcli.Client{Exec: op.exec}
		if _, err := sharelib.Share(context.Background(), c, testRequest()); !errors.Is(err, opcli.ErrNoLink) {
			t.Errorf("Share: got %v, want %v", err, opcli.ErrNoLink)
		}
	})
	t.Run("NoNotesField", func(t *testing.T) {
		op := newScriptOP()
		op.replies["item template"] = `{"fields":[]}`
		c := &opcli.Client{Exec: op.exec}
		if _, err := sharelib.Share(context.Background(), c, testRequest()); err == nil {
			t.Error("Share: got nil error for a template without a notes field")
		}
	})
}

func TestReadNote(t *testing.T) {
	tests := []struct {
		input string
		want  string
		err   error
	}{
		{"FOO=bar\n", "FOO=bar\n", nil},
		{"  indented\n\n", "  indented\n\n", nil},
		{"", "", sharelib.ErrNoInput},
		{" \n\t\n", "", sharelib.ErrNoInput},
		{strings.Repeat("x", sharelib.MaxNoteSize), strings.Repeat("x", sharelib.MaxNoteSize), nil},
		{strings.Repeat("x", sharelib.MaxNoteSize+1), "", sharelib.ErrTooLarge},
	}
	for _, tc := range tests {
		got, err := sharelib.ReadNote(strings.NewReader(tc.input))
		if !errors.Is(err, tc.err) {
			t.Errorf("ReadNote(%d bytes): got error %v, want %v", len(tc.input), err, tc.err)
		}
		if got != tc.want {
			t.Errorf("ReadNote(%d bytes): got %d bytes, want %d", len(tc.input), len(got), len(tc.want))
		}
	}
}

func TestDefaultTitle(t *testing.T) {
	now := time.Date(2025, 2, 1, 15, 4, 5, 0, time.Local)
	tests := []struct {
		dir, want string
	}{
		{"/home/alice/src/demo", "[demo] - 01.02.2025"},
		{"/home/alice/src/demo/", "[demo] - 01.02.2025"},
		{"/", "[opshare] - 01.02.2025"},
		{"", "[opshare] - 01.02.2025"},
	}
	for _, tc := range tests {
		if got := sharelib.DefaultTitle(tc.dir, now); got != tc.want {
			t.Errorf("DefaultTitle(%q): got %q, want %q", tc.dir, got, tc.want)
		}
	}
}

func TestParseExpiry(t *testing.T) {
	const day = 24 * time.Hour
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"7d", 7 * day, true},
		{"1h", time.Hour, true},
		{"90m", 90 * time.Minute, true},
		{"30s", 30 * time.Second, true},
		{"2w", 14 * day, true},
		{"1w2d", 9 * day, true},
		{"1h30m", 90 * time.Minute, true},

		{"", 0, false},
		{"7", 0, false},
		{"d", 0, false},
		{"7x", 0, false},
		{"0d", 0, false},
		{"7 d", 0, false},
		{"-1h", 0, false},

		// Near and beyond the range of a time.Duration.
		{"106751d", 106751 * day, true},
		{"300000d", 0, false},
		{"2147483647w", 0, false},
		{"99999999999999999999s", 0, false},
		{"106751d106751d", 0, false},
	}
	for _, tc := range tests {
		got, err := sharelib.ParseExpiry(tc.input)
		if tc.ok && err != nil {
			t.Errorf("ParseExpiry(%q): unexpected error: %v", tc.input, err)
		} else if !tc.ok && err == nil {
			t.Errorf("ParseExpiry(%q): got %v, want error", tc.input, got)
		} else if got != tc.want {
			t.Errorf("ParseExpiry(%q): got %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestSplitEmails(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a@b.c", []string{"a@b.c"}},
		{"a@b.c,d@e.f", []string{"a@b.c", "d@e.f"}},
		{" a@b.c  d@e.f ,g@h.i ", []string{"a@b.c", "d@e.f", "g@h.i"}},
	}
	for _, tc := range tests {
		got := sharelib.SplitEmails(tc.input)
		if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("SplitEmails(%q) (-want, +got):\n%s", tc.input, diff)
		}
	}
}
