// Package cmdshare implements the default opshare command, which stores its
// input as a 1Password Secure Note and copies a share link to the clipboard.
package cmdshare

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/opshare/clipboard"
	"github.com/creachadair/opshare/cmd/opshare/config"
	"github.com/creachadair/opshare/history"
	"github.com/creachadair/opshare/opcli"
	"github.com/creachadair/opshare/sharelib"
	"github.com/creachadair/opshare/wordhash"
)

// Flags are the flags for the share command.
var Flags struct {
	Vault     string    `flag:"vault,The 1Password vault to store the note in (default: Shared Notes)"`
	ExpiresIn string    `flag:"expires-in,Expiration time for the share link (default: 7d)"`
	Emails    EmailList `flag:"emails,Share only with these e-mail addresses (repeatable)"`
	Title     string    `flag:"title,Item title (default: [<dir>] - <date>)"`
	ViewOnce  bool      `flag:"view-once,Expire the link after it is viewed once"`
	NoCopy    bool      `flag:"no-copy,Print the link without copying it to the clipboard"`
	NoHistory bool      `flag:"no-history,Do not record the share in the history file"`
}

// EmailList is a flag.Value that collects e-mail addresses. Each use of the
// flag may give several addresses separated by commas or spaces.
type EmailList []string

func (e *EmailList) String() string { return strings.Join(*e, ",") }

func (e *EmailList) Set(s string) error {
	addrs := sharelib.SplitEmails(s)
	if len(addrs) == 0 {
		return errors.New("empty e-mail address")
	}
	for _, a := range addrs {
		if !strings.Contains(a, "@") {
			return fmt.Errorf("invalid e-mail address %q", a)
		}
	}
	*e = append(*e, addrs...)
	return nil
}

// Help is the help text for the share command.
const Help = `Store standard input as a 1Password Secure Note and share it.

The text read from stdin is saved as a new Secure Note in the selected vault
(which is created if it does not exist), a share link is generated for it,
and the link is copied to the clipboard and printed to stdout.

By default anyone with the link can view the note until it expires. Use
--emails to restrict the link to specific recipients, and --view-once to
make the link expire after it is viewed once. When --emails is set, any
further arguments are also taken as recipient addresses.

Example:
  cat .env | opshare --vault "Team Notes" --emails bob@example.com carol@example.com

The 1Password CLI (op) must be installed and signed in.`

// Run implements the share command. Arguments are accepted only as additional
// recipients for --emails.
func Run(env *command.Env, moreEmails ...string) error {
	if len(moreEmails) != 0 && len(Flags.Emails) == 0 {
		return env.Usagef("extra arguments after command %q: %q", env.Command.Name, moreEmails)
	}
	for _, addr := range moreEmails {
		if err := Flags.Emails.Set(addr); err != nil {
			return env.Usagef("invalid value %q for flag -emails: %v", addr, err)
		}
	}

	set := config.Get(env)

	note, err := sharelib.ReadNote(set.Input())
	if errors.Is(err, sharelib.ErrNoInput) {
		return fmt.Errorf("%w; pipe text on stdin, e.g., cat .env | %s", err, command.ProgramName())
	} else if err != nil {
		return err
	}

	req := sharelib.Request{
		Note:      note,
		Title:     Flags.Title,
		Vault:     cmp.Or(Flags.Vault, set.File.Vault, config.DefaultVault),
		ExpiresIn: cmp.Or(Flags.ExpiresIn, set.File.ExpiresIn, config.DefaultExpiresIn),
		Emails:    slices.Clone([]string(Flags.Emails)),
		ViewOnce:  Flags.ViewOnce || set.File.ViewOnce,
		Tags:      set.File.Tags,
	}
	if len(req.Emails) == 0 {
		req.Emails = slices.Clone(set.File.Emails)
	}
	if req.Title == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		req.Title = sharelib.DefaultTitle(wd, time.Now())
	}

	res, err := sharelib.Share(env.Context(), set.Client(), req)
	if errors.Is(err, opcli.ErrNotInstalled) {
		return fmt.Errorf("%w; see https://developer.1password.com/docs/cli/get-started", err)
	} else if err != nil {
		return err
	}
	if res.VaultCreated {
		fmt.Fprintf(env, "Created vault %q\n", req.Vault)
	}

	digest := wordhash.New(note)
	if !Flags.NoHistory {
		if err := recordShare(set, req, res, digest); err != nil {
			// The share succeeded; report but do not fail.
			fmt.Fprintf(env, "Warning: %v\n", err)
		}
	}

	if !Flags.NoCopy {
		copyFn := set.Copy
		if copyFn == nil {
			copyFn = clipboard.WriteString
		}
		if err := copyFn(res.Link); err != nil {
			fmt.Fprintln(set.Output(), res.Link)
			return fmt.Errorf("copying link: %w", err)
		}
		fmt.Fprintln(env, "Link copied to clipboard:")
	}
	fmt.Fprintln(set.Output(), res.Link)
	fmt.Fprintf(env, "Shared %q from vault %q (%s)\n", res.Item.Title, req.Vault, digest)
	return nil
}

func recordShare(set *config.Settings, req sharelib.Request, res sharelib.Result, digest string) error {
	path := set.HistoryPath()
	if path == "" {
		return nil
	}
	h, err := history.Load(path)
	if err != nil {
		return err
	}
	h.Add(&history.Entry{
		ItemID:   res.Item.ID,
		Title:    cmp.Or(res.Item.Title, req.Title),
		Vault:    req.Vault,
		Created:  time.Now().UTC().Truncate(time.Second),
		Expires:  res.Expires.UTC().Truncate(time.Second),
		Emails:   req.Emails,
		ViewOnce: req.ViewOnce,
		Digest:   digest,
	})
	return h.Save(path)
}
