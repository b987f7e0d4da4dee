package commands

import (
	"regexp"
	"strings"
)

// DefaultPrefixes are the default command prefixes.
var DefaultPrefixes = []string{"/", "!"}

// Parser detects and parses commands typed at the start of a REPL line.
// Unlike a chat-gateway parser, it never needs to hunt for commands
// embedded mid-message: a line is either a command or a turn.
type Parser struct {
	prefixes  []string
	controlRe *regexp.Regexp
}

// NewParser creates a new command parser.
func NewParser(prefixes ...string) *Parser {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}

	escapedPrefixes := make([]string, len(prefixes))
	for i, p := range prefixes {
		escapedPrefixes[i] = regexp.QuoteMeta(p)
	}
	prefixPattern := strings.Join(escapedPrefixes, "|")

	return &Parser{
		prefixes:  prefixes,
		controlRe: regexp.MustCompile(`^(?:` + prefixPattern + `)([a-zA-Z][a-zA-Z0-9_-]*)(?:\s+(.*))?$`),
	}
}

// ParseCommand parses a command invocation from text.
// Returns nil if the text is not a valid command.
func (p *Parser) ParseCommand(text string) *ParsedCommand {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if !p.isCommandPrefix(text) {
		return nil
	}

	match := p.controlRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	cmdName := strings.ToLower(match[1])
	args := ""
	if len(match) > 2 {
		args = strings.TrimSpace(match[2])
	}

	return &ParsedCommand{
		Name:   cmdName,
		Args:   args,
		Prefix: text[:1],
	}
}

// IsCommand checks if text starts with a command.
func (p *Parser) IsCommand(text string) bool {
	text = strings.TrimSpace(text)
	return p.isCommandPrefix(text)
}

// isCommandPrefix checks if text starts with a command prefix.
func (p *Parser) isCommandPrefix(text string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(text, prefix) {
			// Must be followed by a letter
			if len(text) > len(prefix) {
				next := text[len(prefix)]
				if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') {
					return true
				}
			}
		}
	}
	return false
}

// NormalizeCommandText extracts the command portion from text.
// For "/help foo bar", returns "help foo bar".
func NormalizeCommandText(text string, prefixes ...string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}

	return text
}

// SplitCommandArgs splits command text into name and args.
func SplitCommandArgs(text string) (name, args string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	parts := strings.SplitN(text, " ", 2)
	name = strings.ToLower(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return name, args
}
