package cmddebug

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/creachadair/command"
	"github.com/creachadair/opshare/cmd/opshare/config"
	"github.com/creachadair/opshare/opcli"
)

var Command = &command.C{
	Name:     "debug",
	Help:     "Debug commands for the 1Password CLI integration.",
	Unlisted: true,

	Commands: []*command.C{{
		Name:  "template",
		Usage: "[category]",
		Help:  "Print the item template op reports for a category (default Secure Note).",
		Run:   command.Adapt(runDebugTemplate),
	}, {
		Name: "link",
		Help: "Extract a share link from op output given on stdin.",
		Run:  command.Adapt(runDebugLink),
	}, {
		Name: "account",
		Help: "Print the accounts op reports as signed in.",
		Run:  command.Adapt(runDebugAccount),
	}},
}

// runDebugTemplate implements the "debug template" subcommand.
func runDebugTemplate(env *command.Env, optCategory ...string) error {
	category := opcli.SecureNote
	if len(optCategory) > 1 {
		return env.Usagef("extra arguments after category: %q", optCategory[1:])
	} else if len(optCategory) == 1 {
		category = optCategory[0]
	}
	set := config.Get(env)
	t, err := set.Client().Template(env.Context(), category)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(set.Output())
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// runDebugLink implements the "debug link" subcommand.
func runDebugLink(env *command.Env) error {
	set := config.Get(env)
	data, err := io.ReadAll(set.Input())
	if err != nil {
		return err
	}
	link, err := opcli.ExtractLink(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(set.Output(), link)
	return nil
}

// runDebugAccount implements the "debug account" subcommand.
func runDebugAccount(env *command.Env) error {
	set := config.Get(env)
	accts, err := set.Client().CheckAccount(env.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(set.Output())
	enc.SetIndent("", "  ")
	return enc.Encode(accts)
}
