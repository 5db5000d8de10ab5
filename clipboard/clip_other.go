//go:build !darwin && !linux

package clipboard

import (
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
)

func writeString(s string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w on %s", ErrUnavailable, runtime.GOOS)
	}
	return clipboard.WriteAll(s)
}
