package clipboard

import (
	"fmt"
	"os/exec"
	"strings"
)

func writeString(s string) error {
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(s)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pbcopy: %w %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
