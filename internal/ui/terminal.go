package ui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/substantialcattle5/redup/util"
)

// ErrOutputExists is returned when an output is present and the user has
// not agreed to replace it.
var ErrOutputExists = errors.New("output already exists (use --force to overwrite)")

// IsInteractive reports whether r is a terminal a user can answer prompts on.
func IsInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ConfirmReplace asks whether path may be overwritten. Without a terminal
// there is nobody to ask, so the answer is no.
func ConfirmReplace(path string, in io.Reader, out io.Writer, interactive bool) error {
	if !interactive {
		return fmt.Errorf("%s: %w", path, ErrOutputExists)
	}
	ok, err := util.ConfirmOverwrite(fmt.Sprintf("%s already exists. Overwrite?", path), in, out)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrOutputExists)
	}
	return nil
}
