// Package sharelib is a support library for the opshare tool.
package sharelib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creachadair/getpass"
	"github.com/creachadair/opshare/opcli"
	"golang.org/x/term"
)

// MaxNoteSize is the largest note text ReadNote will accept, in bytes.
const MaxNoteSize = 1 << 20

var (
	// ErrNoInput is reported by ReadNote if the input is empty or blank.
	ErrNoInput = errors.New("no input text provided")

	// ErrTooLarge is reported by ReadNote if the input exceeds MaxNoteSize.
	ErrTooLarge = fmt.Errorf("input exceeds %d bytes", MaxNoteSize)
)

// ReadNote reads the text of a note from r. If r is a terminal, the user is
// prompted for a single line of text with echo disabled; otherwise all of r
// is read.
func ReadNote(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		text, err := getpass.Prompt("Note text: ")
		if err != nil {
			return "", fmt.Errorf("read note: %w", err)
		} else if strings.TrimSpace(text) == "" {
			return "", ErrNoInput
		}
		return text, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxNoteSize+1))
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	} else if len(data) > MaxNoteSize {
		return "", ErrTooLarge
	} else if len(strings.TrimSpace(string(data))) == 0 {
		return "", ErrNoInput
	}
	return string(data), nil
}

// DefaultTitle returns the default item title for a note shared from the
// directory dir at time now. Only the base name of dir is used.
func DefaultTitle(dir string, now time.Time) string {
	base := filepath.Base(dir)
	if base == "." || base == string(filepath.Separator) {
		base = "opshare"
	}
	return fmt.Sprintf("[%s] - %s", base, now.Format("02.01.2006"))
}

var expiryUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseExpiry parses an expiration duration in the syntax accepted by op, one
// or more groups of digits followed by a unit (s, m, h, d, or w), for example
// "7d", "1w2d", or "90m". The result must be positive.
func ParseExpiry(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty expiration")
	}
	var total time.Duration
	rest := s
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return 0, fmt.Errorf("invalid expiration %q", s)
		}
		unit, ok := expiryUnits[rest[i]]
		if !ok {
			return 0, fmt.Errorf("invalid expiration unit %q in %q", rest[i], s)
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expiration %q: %w", s, err)
		}
		if n > int64(math.MaxInt64/unit) || time.Duration(n)*unit > math.MaxInt64-total {
			return 0, fmt.Errorf("expiration %q is too long", s)
		}
		total += time.Duration(n) * unit
		rest = rest[i+1:]
	}
	if total <= 0 {
		return 0, fmt.Errorf("expiration %q must be positive", s)
	}
	return total, nil
}

// Request describes a note to be shared.
type Request struct {
	Note      string   // the text of the note (required)
	Title     string   // the item title (required)
	Vault     string   // the vault to store the note in (required)
	ExpiresIn string   // link expiration, in ParseExpiry syntax (required)
	Emails    []string // recipients; if empty, anyone with the link can view
	ViewOnce  bool     // if true, the link expires after one view
	Tags      []string // tags to attach to the item
}

// Result is the result of a successful call to Share.
type Result struct {
	Item         opcli.Item
	Link         string
	Expires      time.Time // when the link expires
	VaultCreated bool      // whether the vault was created for this request
}

// Share stores req.Note as a Secure Note in the requested vault and creates a
// share link for it. The vault is created if it does not exist.
func Share(ctx context.Context, c *opcli.Client, req Request) (Result, error) {
	ttl, err := ParseExpiry(req.ExpiresIn)
	if err != nil {
		return Result{}, err
	} else if req.Vault == "" {
		return Result{}, errors.New("no vault specified")
	} else if req.Title == "" {
		return Result{}, errors.New("no item title specified")
	}

	if _, err := c.CheckAccount(ctx); err != nil {
		return Result{}, err
	}
	created, err := c.EnsureVault(ctx, req.Vault)
	if err != nil {
		return Result{}, err
	}

	tmpl, err := c.Template(ctx, opcli.SecureNote)
	if err != nil {
		return Result{}, err
	}
	if !tmpl.SetField(opcli.NotesField, req.Note) {
		return Result{}, fmt.Errorf("%s template has no %q field", opcli.SecureNote, opcli.NotesField)
	}

	item, err := c.CreateItem(ctx, opcli.CreateRequest{
		Title:    req.Title,
		Vault:    req.Vault,
		Template: tmpl,
		Tags:     req.Tags,
	})
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	link, err := c.ShareItem(ctx, opcli.ShareRequest{
		ItemID:    item.ID,
		Vault:     req.Vault,
		ExpiresIn: req.ExpiresIn,
		Emails:    req.Emails,
		ViewOnce:  req.ViewOnce,
	})
	if err != nil {
		return Result{Item: item, VaultCreated: created}, err
	}
	return Result{
		Item:         item,
		Link:         link,
		Expires:      start.Add(ttl),
		VaultCreated: created,
	}, nil
}

// SplitEmails splits a list of e-mail addresses separated by commas or
// whitespace. Empty entries are discarded.
func SplitEmails(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}
