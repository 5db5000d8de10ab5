// Package cmdconfig implements the opshare "config" commands.
package cmdconfig

import (
	"errors"
	"fmt"

	"github.com/creachadair/command"
	"github.com/creachadair/opshare/cmd/opshare/config"
	"github.com/creachadair/opshare/sharelib"
	yaml "gopkg.in/yaml.v3"
)

var Command = &command.C{
	Name: "config",
	Help: `Commands to view and edit the configuration file.

The configuration file is YAML, and may set any of these keys:

  vault:       default vault name
  expires-in:  default link expiration (e.g., 7d)
  emails:      list of default recipient addresses
  view-once:   true to make links expire after one view
  tags:        list of tags to attach to new items
  op:          name or path of the 1Password CLI
  history:     path of the history file
  no-history:  true to disable the history file

Command-line flags take precedence over the configuration file.`,

	Commands: []*command.C{
		{
			Name: "show",
			Help: "Print the current configuration.",
			Run:  command.Adapt(runShow),
		},
		{
			Name: "edit",
			Help: "Edit the configuration file in $EDITOR.",
			Run:  command.Adapt(runEdit),
		},
		{
			Name: "path",
			Help: "Print the path of the configuration file.",
			Run: command.Adapt(func(env *command.Env) error {
				fmt.Fprintln(config.Get(env).Output(), config.Get(env).ConfigPath)
				return nil
			}),
		},
	},
}

// runShow implements the "config show" subcommand.
func runShow(env *command.Env) error {
	set := config.Get(env)
	enc := yaml.NewEncoder(set.Output())
	enc.SetIndent(2)
	if err := enc.Encode(set.File); err != nil {
		return err
	}
	return enc.Close()
}

// runEdit implements the "config edit" subcommand.
func runEdit(env *command.Env) error {
	set := config.Get(env)
	f, err := sharelib.Edit(env.Context(), "config.yaml", set.File)
	if errors.Is(err, sharelib.ErrNoChange) {
		fmt.Fprintln(env, "<no change>")
		return nil
	} else if err != nil {
		return err
	}
	if err := config.SaveFile(set.ConfigPath, f); err != nil {
		return err
	}
	fmt.Fprintf(env, "Updated %q\n", set.ConfigPath)
	return nil
}
