package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfirmOverwrite prints prompt and reads a yes/no answer from in. An
// answer cut off by end of input still counts; input with no answer at all
// returns io.EOF.
func ConfirmOverwrite(prompt string, in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && response != "") {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
