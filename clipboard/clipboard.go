// Package clipboard writes text to the system clipboard.
package clipboard

import "errors"

// ErrUnavailable is reported when no clipboard is available to write to.
var ErrUnavailable = errors.New("no system clipboard is available")

// WriteString attempts to copy the given string to the system clipboard.
func WriteString(s string) error { return writeString(s) }
