// Package config contains shared configuration settings for opshare
// subcommands.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/command"
	"github.com/creachadair/opshare/opcli"
	yaml "gopkg.in/yaml.v3"
)

// Built-in defaults for settings not given by flags or the config file.
const (
	DefaultVault     = "Shared Notes"
	DefaultExpiresIn = "7d"
)

// File is the contents of an opshare configuration file.
type File struct {
	// Vault is the default vault to store notes in.
	Vault string `yaml:"vault,omitempty"`

	// ExpiresIn is the default link expiration, e.g., "7d".
	ExpiresIn string `yaml:"expires-in,omitempty"`

	// Emails are default recipients for share links.
	Emails []string `yaml:"emails,omitempty"`

	// ViewOnce, if true, makes links expire after one view by default.
	ViewOnce bool `yaml:"view-once,omitempty"`

	// Tags are attached to every item created.
	Tags []string `yaml:"tags,omitempty"`

	// OP is the name or path of the 1Password CLI.
	OP string `yaml:"op,omitempty"`

	// History is the path of the history file.
	History string `yaml:"history,omitempty"`

	// NoHistory, if true, disables the history file.
	NoHistory bool `yaml:"no-history,omitempty"`
}

// LoadFile reads a configuration file from path. If path does not exist,
// LoadFile returns an empty File without error.
func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	} else if err != nil {
		return f, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode config %q: %w", path, err)
	}
	return f, nil
}

// SaveFile writes f to the configuration file at path.
func SaveFile(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return atomicfile.WriteData(path, data, 0600)
}

// Dir returns the directory where opshare keeps its files by default.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "opshare")
}

// DefaultPath returns the default location of the configuration file.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Settings are shared settings used by opshare subcommands.
type Settings struct {
	ConfigPath string // the configuration file path
	File       File   // the contents of the configuration file
	OP         string // the op binary, overriding File.OP
	Verbose    bool   // log op commands

	// The following hooks replace system resources when set.

	Exec  opcli.Exec         // run op commands
	Copy  func(string) error // write to the clipboard
	Stdin io.Reader          // read note text
	Out   io.Writer          // write results
}

// Load reads the configuration file named by s.ConfigPath into s.File.
func (s *Settings) Load() error {
	s.ConfigPath = cmp.Or(s.ConfigPath, DefaultPath())
	f, err := LoadFile(s.ConfigPath)
	if err != nil {
		return err
	}
	s.File = f
	return nil
}

// Client returns an op client for the settings in s.
func (s *Settings) Client() *opcli.Client {
	c := &opcli.Client{
		Path: cmp.Or(s.OP, s.File.OP, opcli.DefaultPath),
		Exec: s.Exec,
	}
	if s.Verbose {
		c.Logf = log.Printf
	}
	return c
}

// HistoryPath returns the path of the history file, or "" if history is
// disabled.
func (s *Settings) HistoryPath() string {
	if s.File.NoHistory {
		return ""
	}
	return cmp.Or(s.File.History, filepath.Join(Dir(), "history.yaml"))
}

// Input returns the reader for note text.
func (s *Settings) Input() io.Reader {
	if s.Stdin != nil {
		return s.Stdin
	}
	return os.Stdin
}

// Output returns the writer for command results.
func (s *Settings) Output() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return os.Stdout
}

// Get returns the settings associated with env.
func Get(env *command.Env) *Settings { return env.Config.(*Settings) }
