package clipboard

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
)

// hasDisplay reports whether an X11 or Wayland display is reachable.
func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

func writeString(s string) error {
	// The helper tools (xsel, xclip, wl-copy) will not work without a display.
	if !hasDisplay() {
		return fmt.Errorf("%w (no DISPLAY or WAYLAND_DISPLAY)", ErrUnavailable)
	}
	if clipboard.Unsupported {
		return fmt.Errorf("%w (install xsel, xclip, or wl-clipboard)", ErrUnavailable)
	}
	return clipboard.WriteAll(s)
}
