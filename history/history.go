// Package history maintains a local log of notes shared by opshare.
//
// The log records enough about each shared item to find and remove it later.
// It never records the note text or the share link.
package history

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/mds/slice"
	yaml "gopkg.in/yaml.v3"
)

// A Log is a collection of shared item entries, in order of creation.
type Log struct {
	Entries []*Entry `yaml:"entries,omitempty"`
}

// An Entry records a single shared item.
type Entry struct {
	// ItemID is the 1Password item ID of the shared note.
	ItemID string `yaml:"item-id"`

	// Title is the item title.
	Title string `yaml:"title"`

	// Vault is the name of the vault containing the item.
	Vault string `yaml:"vault"`

	// Created is when the item was shared.
	Created time.Time `yaml:"created"`

	// Expires is when the share link expires. Zero means unknown.
	Expires time.Time `yaml:"expires,omitempty"`

	// Emails are the recipients the link was restricted to, if any.
	Emails []string `yaml:"emails,omitempty"`

	// ViewOnce records whether the link expires after one view.
	ViewOnce bool `yaml:"view-once,omitempty"`

	// Digest is a human-readable digest of the note text.
	Digest string `yaml:"digest,omitempty"`
}

// IsExpired reports whether the link for e has expired as of now.
func (e *Entry) IsExpired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

// Load reads a log from the file at path. If path does not exist, Load
// returns an empty log without error.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return new(Log), nil
	} else if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var log Log
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode history %q: %w", path, err)
	}
	return &log, nil
}

// Save writes the contents of l to the file at path, replacing any previous
// contents. The parent directory is created if necessary.
func (l *Log) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return atomicfile.Tx(path, 0600, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l); err != nil {
			return err
		}
		return enc.Close()
	})
}

// Add appends e to the log.
func (l *Log) Add(e *Entry) { l.Entries = append(l.Entries, e) }

// Expired returns the entries whose links have expired as of now, in order of
// expiration.
func (l *Log) Expired(now time.Time) []*Entry {
	var out []*Entry
	for _, e := range l.Entries {
		if e.IsExpired(now) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b *Entry) int {
		return a.Expires.Compare(b.Expires)
	})
	return out
}

// Remove removes the entry with the given item ID, and reports whether it
// was found.
func (l *Log) Remove(id string) bool {
	n := len(l.Entries)
	l.Entries = slice.Partition(l.Entries, func(e *Entry) bool {
		return e.ItemID != id
	})
	return len(l.Entries) != n
}

// Find returns the entries whose item ID, title, vault, or recipients contain
// query as a case-insensitive substring. An empty query matches every entry.
// Results are ordered from newest to oldest.
func (l *Log) Find(query string) []*Entry {
	sub := strings.ToLower(query)
	var out []*Entry
	for _, e := range l.Entries {
		if matches(e, sub) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b *Entry) int {
		return cmp.Compare(b.Created.UnixNano(), a.Created.UnixNano())
	})
	return out
}

func matches(e *Entry, sub string) bool {
	if sub == "" || e.ItemID == sub {
		return true
	}
	for _, s := range append([]string{e.Title, e.Vault, e.ItemID}, e.Emails...) {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}
