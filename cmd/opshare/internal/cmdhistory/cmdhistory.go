// Package cmdhistory implements the opshare commands that read and maintain
// the history of shared notes.
package cmdhistory

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/mds/value"
	"github.com/creachadair/opshare/cmd/opshare/config"
	"github.com/creachadair/opshare/history"
)

var Commands = []*command.C{
	{
		Name:     "history",
		Usage:    "[query]",
		Help:     "List notes shared from this machine.",
		SetFlags: command.Flags(flax.MustBind, &listFlags),
		Run:      command.Adapt(runList),
	},
	{
		Name: "purge",
		Help: `Delete shared notes whose links have expired.

Items recorded in the history whose share links have expired are deleted
from 1Password and removed from the history. Use --archive to move them to
the archive instead of deleting them, and --all to purge every recorded
item regardless of expiration.`,
		SetFlags: command.Flags(flax.MustBind, &purgeFlags),
		Run:      command.Adapt(runPurge),
	},
}

var errNoHistory = errors.New("history is disabled (no-history is set in the config)")

var listFlags struct {
	Expired bool `flag:"x,List only entries whose links have expired"`
}

// runList implements the "history" subcommand.
func runList(env *command.Env, optQuery ...string) error {
	var query string
	if len(optQuery) > 1 {
		return env.Usagef("extra arguments after query: %q", optQuery[1:])
	} else if len(optQuery) == 1 {
		query = optQuery[0]
	}

	set := config.Get(env)
	path := set.HistoryPath()
	if path == "" {
		return errNoHistory
	}
	h, err := history.Load(path)
	if err != nil {
		return err
	}

	now := time.Now()
	tw := tabwriter.NewWriter(set.Output(), 4, 0, 2, ' ', 0)
	for _, e := range h.Find(query) {
		expired := e.IsExpired(now)
		if listFlags.Expired && !expired {
			continue
		}
		tag := value.Cond(expired, "*", "-")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ItemID, tag, e.Created.Local().Format(time.DateOnly), e.Title, e.Vault)
	}
	return tw.Flush()
}

var purgeFlags struct {
	All     bool `flag:"all,Purge all recorded items, not only expired ones"`
	Archive bool `flag:"archive,Archive items instead of deleting them"`
	DryRun  bool `flag:"n,Print what would be purged without doing it"`
}

// runPurge implements the "purge" subcommand.
func runPurge(env *command.Env) error {
	set := config.Get(env)
	path := set.HistoryPath()
	if path == "" {
		return errNoHistory
	}
	h, err := history.Load(path)
	if err != nil {
		return err
	}

	targets := h.Expired(time.Now())
	if purgeFlags.All {
		targets = append([]*history.Entry(nil), h.Entries...)
	}
	if len(targets) == 0 {
		fmt.Fprintln(env, "Nothing to purge")
		return nil
	}

	verb := value.Cond(purgeFlags.Archive, "Archived", "Deleted")
	if purgeFlags.DryRun {
		verb = "Would purge"
	}
	c := set.Client()
	var nerr int
	for _, e := range targets {
		if !purgeFlags.DryRun {
			if err := c.DeleteItem(env.Context(), e.ItemID, e.Vault, purgeFlags.Archive); err != nil {
				fmt.Fprintf(env, "Error: %v\n", err)
				nerr++
				continue
			}
			h.Remove(e.ItemID)
		}
		fmt.Fprintf(set.Output(), "%s %s %q\n", verb, e.ItemID, e.Title)
	}
	if !purgeFlags.DryRun {
		if err := h.Save(path); err != nil {
			return err
		}
	}
	if nerr != 0 {
		return fmt.Errorf("failed to purge %d of %d items", nerr, len(targets))
	}
	return nil
}
