// Program opshare stores text from stdin as a 1Password Secure Note, creates
// a share link for it, and copies the link to the clipboard.
package main

import (
	"cmp"
	"errors"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/opshare/cmd/opshare/config"

	"github.com/creachadair/opshare/cmd/opshare/internal/cmdconfig"
	"github.com/creachadair/opshare/cmd/opshare/internal/cmddebug"
	"github.com/creachadair/opshare/cmd/opshare/internal/cmdhistory"
	"github.com/creachadair/opshare/cmd/opshare/internal/cmdshare"
)

var rootFlags struct {
	Config  string `flag:"config,default=$OPSHARE_CONFIG,Configuration file path"`
	OP      string `flag:"op,default=$OPSHARE_OP,Path of the 1Password CLI (default: op)"`
	Verbose bool   `flag:"verbose,Log each 1Password CLI command to stderr"`
}

func newRoot() *command.C {
	return &command.C{
		Name:  command.ProgramName(),
		Usage: "[flags] < input",
		Help:  "🔗 " + cmdshare.Help,

		SetFlags: command.Flags(flax.MustBind, &rootFlags, &cmdshare.Flags),

		Init: func(env *command.Env) error {
			set, ok := env.Config.(*config.Settings)
			if !ok || set == nil {
				set = new(config.Settings)
				env.Config = set
			}
			set.ConfigPath = cmp.Or(rootFlags.Config, set.ConfigPath)
			set.OP = cmp.Or(rootFlags.OP, set.OP)
			set.Verbose = set.Verbose || rootFlags.Verbose
			return set.Load()
		},

		Run: command.Adapt(cmdshare.Run),

		Commands: append(
			cmdhistory.Commands,
			cmdconfig.Command,
			command.HelpCommand([]command.HelpTopic{{
				Name: "expiry",
				Help: `Syntax of link expiration times.

An expiration time is one or more groups of digits followed by a unit:
s (seconds), m (minutes), h (hours), d (days), or w (weeks). For example
"7d", "1w2d", and "90m" are all valid. The default is 7d.`,
			}}),
			command.VersionCommand(),
			cmddebug.Command,
		),
	}
}

func main() {
	env := newRoot().NewEnv(new(config.Settings)).MergeFlags(true)
	os.Exit(report(run(env, os.Args[1:])))
}

// run runs the command-line args starting from env. Errors parsing flags are
// reported as usage errors for the command whose flags were rejected.
func run(env *command.Env, args []string) error {
	err := command.Run(env, args)
	if isFlagError(err) {
		return commandEnv(env, args).Usagef("%v", err)
	}
	return err
}

// report logs err, if it is not nil, and returns the exit status for it.
// Usage errors print the usage summary of the command and exit with status 2.
func report(err error) int {
	if err == nil {
		return 0
	}
	var uerr command.UsageError
	if errors.As(err, &uerr) {
		log.Printf("Error: %s", uerr.Message)
		uerr.Env.Command.HelpInfo(0).WriteUsage(uerr.Env)
		return 2
	} else if errors.Is(err, command.ErrRequestHelp) {
		return 2
	}
	log.Printf("Error: %v", err)
	var perr command.PanicError
	if errors.As(err, &perr) {
		log.Printf("Stack trace from panic:\n%s", perr.Stack())
	}
	return 1
}

// flagErrors are the prefixes of the errors reported when parsing flags.
var flagErrors = []string{
	"bad flag syntax",
	"flag provided but not defined",
	"flag needs an argument",
	"invalid boolean flag",
	"invalid boolean value",
	"invalid value",
	"missing value for flag",
}

func isFlagError(err error) bool {
	var uerr command.UsageError
	if err == nil || errors.As(err, &uerr) {
		return false
	}
	msg := err.Error()
	return slices.ContainsFunc(flagErrors, func(pfx string) bool {
		return strings.HasPrefix(msg, pfx)
	})
}

// commandEnv returns an environment for the subcommand of env named by args.
func commandEnv(env *command.Env, args []string) *command.Env {
	cur := env
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if sub := cur.Command.FindSubcommand(arg); sub != nil {
			cur = &command.Env{Parent: cur, Command: sub, Config: cur.Config, Log: cur.Log}
		}
	}
	return cur
}
