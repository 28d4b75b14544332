// Package console provides the interactive confirmation capability.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/depdoctor/depdoctor/domain"
)

// TerminalConfirmer asks yes/no questions on the terminal. EOF or any answer
// other than "y"/"yes" counts as no.
type TerminalConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

var _ domain.Confirmer = (*TerminalConfirmer)(nil)

// NewTerminalConfirmer creates a confirmer reading from in and prompting on out.
func NewTerminalConfirmer(in io.Reader, out io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *TerminalConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(c.out, "%s (y/n) ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// AutoConfirmer always answers yes. Used for --yes runs, where approval is
// still bounded by the risk allow-set checked before any confirmation.
type AutoConfirmer struct{}

var _ domain.Confirmer = AutoConfirmer{}

func (AutoConfirmer) Confirm(string) bool { return true }
