package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/kilnhq/relay/internal/markdown"
	"github.com/kilnhq/relay/internal/policy"
)

// lineEditor reads one line of user input at a time. It is a thin wrapper
// around bufio.Scanner rather than a full readline implementation: history
// and multi-line editing are left to the user's shell (rlwrap and friends).
type lineEditor struct {
	scanner *bufio.Scanner
	width   int
}

func newLineEditor(r io.Reader) *lineEditor {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	return &lineEditor{scanner: bufio.NewScanner(r), width: width}
}

// ReadLine prompts and reads one line, returning io.EOF when the input
// stream is exhausted (Ctrl-D).
func (e *lineEditor) ReadLine(prompt string) (string, error) {
	fmt.Fprint(os.Stdout, prompt)
	if !e.scanner.Scan() {
		if err := e.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return e.scanner.Text(), nil
}

// permissionPrompt asks the user, via a single raw-mode keystroke, whether
// a proposed tool call should proceed: (a)llow once, (A)lways allow, (d)eny.
// Falling back to line-buffered input when stdout/stdin isn't a terminal
// (e.g. piped input in tests or CI) so the prompt never hangs forever.
func permissionPrompt(toolName string, input json.RawMessage, description string) policy.PromptResponse {
	label := description
	if label == "" {
		label = toolName
	}
	fmt.Fprintf(os.Stdout, "\n%s wants to run %s\n  %s\n[a]llow once / [A]lways allow / [d]eny: ", label, toolName, compactJSON(input))

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLineResponse()
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return readLineResponse()
	}
	defer term.Restore(fd, state)

	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return policy.PromptDeny
		}
		switch buf[0] {
		case 'a':
			fmt.Fprintln(os.Stdout, "allow once")
			return policy.PromptAllowOnce
		case 'A':
			fmt.Fprintln(os.Stdout, "always allow")
			return policy.PromptAlwaysAllow
		case 'd', 3: // 'd' or Ctrl-C
			fmt.Fprintln(os.Stdout, "deny")
			return policy.PromptDeny
		}
	}
}

func readLineResponse() policy.PromptResponse {
	var line string
	fmt.Fscanln(os.Stdin, &line)
	switch strings.TrimSpace(line) {
	case "a":
		return policy.PromptAllowOnce
	case "A":
		return policy.PromptAlwaysAllow
	default:
		return policy.PromptDeny
	}
}

func compactJSON(input json.RawMessage) string {
	if len(input) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(input, &v); err != nil {
		return string(input)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(input)
	}
	return string(out)
}

// renderAssistantText converts tables in text to the configured display
// mode before printing.
func renderAssistantText(text string, mode markdown.TableMode) string {
	if !markdown.HasTables(text) {
		return text
	}
	return markdown.ConvertTables(text, mode)
}
