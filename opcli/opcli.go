// Package opcli is a thin client for the 1Password command-line tool (op).
//
// The client does not implement any part of the 1Password protocol. Each
// method runs the op tool as a subprocess and decodes its output.
package opcli

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/creachadair/atomicfile"
)

// DefaultPath is the name of the op tool when no other path is configured.
const DefaultPath = "op"

// SecureNote is the item category used for shared notes.
const SecureNote = "Secure Note"

// NotesField is the ID of the plain-text notes field in a Secure Note.
const NotesField = "notesPlain"

var (
	// ErrNotInstalled is reported when the op tool cannot be found.
	ErrNotInstalled = errors.New("the 1Password CLI (op) is not installed")

	// ErrNotSignedIn is reported when op has no usable account session.
	ErrNotSignedIn = errors.New("the 1Password CLI is not signed in (run 'op signin')")

	// ErrNoItemID is reported when op creates an item but does not report its ID.
	ErrNoItemID = errors.New("op did not report an item ID")

	// ErrNoLink is reported when the output of op does not contain a link.
	ErrNoLink = errors.New("op did not report a share link")
)

// An Exec runs the op tool with the given arguments and returns the contents
// of its standard output.
type Exec func(ctx context.Context, args ...string) ([]byte, error)

// CommandError is reported when op exits with a non-zero status.
type CommandError struct {
	Args     []string // the arguments passed to op
	ExitCode int      // the exit status, or -1 if unknown
	Stderr   string   // the standard error text, trimmed
}

func (e *CommandError) Error() string {
	var sub string
	if len(e.Args) != 0 {
		sub = e.Args[0]
		if len(e.Args) > 1 && !strings.HasPrefix(e.Args[1], "-") {
			sub += " " + e.Args[1]
		}
	}
	msg := fmt.Sprintf("op %s: exit status %d", sub, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// A Client runs commands using the op tool.
type Client struct {
	// Path is the name or path of the op binary. If empty, DefaultPath is used.
	Path string

	// Exec, if set, is used to run commands instead of starting a subprocess.
	Exec Exec

	// Logf, if set, is called to log each command before it is run.
	Logf func(string, ...any)
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.Logf != nil {
		c.Logf("run: %s %s", c.path(), strings.Join(args, " "))
	}
	if c.Exec != nil {
		return c.Exec(ctx, args...)
	}
	return c.execCommand(ctx, args...)
}

func (c *Client) path() string { return cmp.Or(c.Path, DefaultPath) }

func (c *Client) execCommand(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path(), args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			return nil, &CommandError{
				Args:     args,
				ExitCode: xerr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// An Account is a single account reported by op.
type Account struct {
	URL         string `json:"url"`
	Email       string `json:"email"`
	UserUUID    string `json:"user_uuid"`
	AccountUUID string `json:"account_uuid"`
}

// CheckAccount reports an error wrapping ErrNotSignedIn if op does not have
// at least one configured account. If op is not installed, the error wraps
// ErrNotInstalled instead.
func (c *Client) CheckAccount(ctx context.Context) ([]Account, error) {
	out, err := c.run(ctx, "account", "list", "--format=json")
	if errors.Is(err, ErrNotInstalled) {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}
	var accts []Account
	if len(bytes.TrimSpace(out)) != 0 {
		if err := json.Unmarshal(out, &accts); err != nil {
			return nil, fmt.Errorf("decode account list: %w", err)
		}
	}
	if len(accts) == 0 {
		return nil, ErrNotSignedIn
	}
	return accts, nil
}

// VaultExists reports whether op can find a vault with the given name.
// A lookup that fails with a non-zero exit is treated as "not found".
func (c *Client) VaultExists(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, "vault", "get", name, "--format=json")
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// CreateVault creates a new vault with the given name.
func (c *Client) CreateVault(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "vault", "create", name); err != nil {
		return fmt.Errorf("create vault %q: %w", name, err)
	}
	return nil
}

// EnsureVault creates the named vault if it does not already exist, and
// reports whether it was created.
func (c *Client) EnsureVault(ctx context.Context, name string) (bool, error) {
	ok, err := c.VaultExists(ctx, name)
	if err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	return true, c.CreateVault(ctx, name)
}

// A Template is the JSON template for an item of some category.
type Template map[string]any

// SetField sets the value of the field with the given ID, and reports whether
// such a field was found in t.
func (t Template) SetField(id, value string) bool {
	fields, _ := t["fields"].([]any)
	var found bool
	for _, f := range fields {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if fid, _ := m["id"].(string); fid == id {
			m["value"] = value
			found = true
		}
	}
	return found
}

// Field returns the value of the field with the given ID, or "".
func (t Template) Field(id string) string {
	fields, _ := t["fields"].([]any)
	for _, f := range fields {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if fid, _ := m["id"].(string); fid == id {
			v, _ := m["value"].(string)
			return v
		}
	}
	return ""
}

// Template fetches the item template for the specified category.
func (c *Client) Template(ctx context.Context, category string) (Template, error) {
	out, err := c.run(ctx, "item", "template", "get", category)
	if err != nil {
		return nil, fmt.Errorf("get %s template: %w", category, err)
	}
	var t Template
	if err := json.Unmarshal(out, &t); err != nil {
		return nil, fmt.Errorf("decode %s template: %w", category, err)
	}
	return t, nil
}

// An Item is the description of an item reported by op.
type Item struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid,omitempty"` // reported by older versions of op
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	Vault     VaultRef  `json:"vault"`
	CreatedAt time.Time `json:"created_at"`
}

// VaultRef identifies the vault an item belongs to.
type VaultRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateRequest is the argument to CreateItem.
type CreateRequest struct {
	Title    string
	Vault    string
	Template Template
	Tags     []string
}

// CreateItem creates a new item from a filled-in template. The template is
// written to a private temporary file for op to read, and removed before
// CreateItem returns.
func (c *Client) CreateItem(ctx context.Context, req CreateRequest) (Item, error) {
	data, err := json.Marshal(req.Template)
	if err != nil {
		return Item{}, fmt.Errorf("encode template: %w", err)
	}

	// The template contains the note text in the clear.
	dir, err := os.MkdirTemp("", "opshare*")
	if err != nil {
		return Item{}, err
	}
	defer os.RemoveAll(dir)

	tpath := filepath.Join(dir, "template.json")
	if err := atomicfile.WriteData(tpath, data, 0600); err != nil {
		return Item{}, fmt.Errorf("write template: %w", err)
	}

	args := []string{"item", "create",
		"--title", req.Title,
		"--vault", req.Vault,
		"--template", tpath,
		"--format=json",
	}
	if len(req.Tags) != 0 {
		args = append(args, "--tags", strings.Join(req.Tags, ","))
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	var item Item
	if err := json.Unmarshal(out, &item); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	item.ID = cmp.Or(item.ID, item.UUID)
	if item.ID == "" {
		return Item{}, ErrNoItemID
	}
	return item, nil
}

// ShareRequest is the argument to ShareItem.
type ShareRequest struct {
	ItemID    string
	Vault     string
	ExpiresIn string   // in op duration syntax, e.g., "7d"
	Emails    []string // if empty, anyone with the link can view
	ViewOnce  bool
}

// ShareArgs returns the op arguments to share an item as described by req.
func (req ShareRequest) ShareArgs() []string {
	args := []string{"item", "share", req.ItemID, "--vault", req.Vault}
	if req.ExpiresIn != "" {
		args = append(args, "--expires-in", req.ExpiresIn)
	}
	for _, e := range req.Emails {
		args = append(args, "--emails", e)
	}
	if req.ViewOnce {
		args = append(args, "--view-once")
	}
	return args
}

// ShareItem creates a share link for an item and returns the link.
func (c *Client) ShareItem(ctx context.Context, req ShareRequest) (string, error) {
	out, err := c.run(ctx, req.ShareArgs()...)
	if err != nil {
		return "", fmt.Errorf("share item: %w", err)
	}
	return ExtractLink(out)
}

// DeleteItem deletes the specified item from vault. If archive is true, the
// item is moved to the archive instead.
func (c *Client) DeleteItem(ctx context.Context, id, vault string, archive bool) error {
	args := []string{"item", "delete", id}
	if vault != "" {
		args = append(args, "--vault", vault)
	}
	if archive {
		args = append(args, "--archive")
	}
	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("delete item %q: %w", id, err)
	}
	return nil
}

// ExtractLink returns the first http or https URL in the output of op.
func ExtractLink(out []byte) (string, error) {
	for _, f := range strings.Fields(string(out)) {
		u, err := url.Parse(f)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme == "https" || u.Scheme == "http" {
			return f, nil
		}
	}
	return "", ErrNoLink
}
