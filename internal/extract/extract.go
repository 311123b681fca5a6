// Package extract turns untrusted model output into parseable JSON text.
//
// Model responses arrive as free-form text that usually, but not always,
// contains a JSON object. Extraction is a bounded best-effort pipeline with
// explicit stages: prefer a fenced code block, strip assignment prefixes and
// comment lines, locate the outermost balanced object by brace counting, and
// apply textual repairs. It never invents structure: when no balanced object
// or array can be located, extraction fails so the caller can retry.
package extract

import (
	"strings"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// ErrNoStructure is returned when no JSON object or array can be located in
// the response text.
var ErrNoStructure = errors.NewSentinel("no JSON structure found in response")

// maxAutoClose caps how many missing closers the repair stage appends.
// Anything worse is treated as genuinely corrupt output.
const maxAutoClose = 2

// JSON extracts and repairs the first JSON object (or array) found in raw
// model output. The returned text is expected to unmarshal cleanly; callers
// treat an error as a parse failure for retry purposes.
func JSON(raw string) (string, error) {
	text := preferFencedBlock(raw)
	text = stripLeadingNoise(text)

	segment, found := locateBalanced(text, '{', '}')
	if !found {
		segment, found = locateBalanced(text, '[', ']')
	}
	if !found {
		return "", errors.Wrap(ErrNoStructure, "locate structure")
	}

	repaired := stripComments(segment)
	repaired = removeTrailingCommas(repaired)
	repaired = stripControlChars(repaired)

	closed, err := closeUnbalanced(repaired)
	if err != nil {
		return "", errors.Wrap(err, "close unbalanced structure")
	}
	return closed, nil
}

// preferFencedBlock returns the content of the first fenced code block if one
// exists, otherwise the input unchanged. The language tag after the opening
// fence is discarded.
func preferFencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return text
	}
	rest := text[start+3:]
	// Drop the language tag, e.g. ```json.
	if newline := strings.IndexByte(rest, '\n'); newline != -1 {
		rest = rest[newline+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return rest
	}
	return rest[:end]
}

// stripLeadingNoise removes leading comment lines and a stray
// "identifier = " assignment prefix that some models emit before the JSON.
func stripLeadingNoise(text string) string {
	lines := strings.Split(text, "\n")
	start := 0
	for start < len(lines) {
		trimmed := strings.TrimSpace(lines[start])
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			start++
			continue
		}
		break
	}
	text = strings.Join(lines[start:], "\n")
	return stripAssignmentPrefix(text)
}

// stripAssignmentPrefix removes a leading "name = " or "name: " before the
// first brace, e.g. "plan = {...}" or "const result = {...}".
func stripAssignmentPrefix(text string) string {
	trimmed := strings.TrimLeft(text, " \t")
	brace := strings.IndexAny(trimmed, "{[")
	if brace <= 0 {
		return text
	}
	prefix := trimmed[:brace]
	for _, r := range prefix {
		if !isIdentifierRune(r) && r != ' ' && r != '\t' && r != '=' && r != ':' {
			return text
		}
	}
	if !strings.ContainsAny(prefix, "=:") {
		return text
	}
	return trimmed[brace:]
}

func isIdentifierRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// locateBalanced returns the first balanced open..close segment, counting
// depth outside of string literals. When the structure never closes, the
// remainder from the opener is returned so the repair stage can attempt to
// close it.
func locateBalanced(text string, open, closeRune byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closeRune:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	// Unclosed structure: hand the tail to the repair stage.
	return text[start:], true
}

// stripComments removes // line comments and /* */ block comments outside of
// string literals.
func stripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				b.WriteByte('\n')
			}
			continue
		case !inString && c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end == -1 {
				i = len(text)
				continue
			}
			i += 2 + end + 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// removeTrailingCommas drops commas that directly precede a closing brace or
// bracket, ignoring whitespace.
func removeTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == ',':
			if nextSignificantIsCloser(text[i+1:]) {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func nextSignificantIsCloser(rest string) bool {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

// stripControlChars removes control characters that would break JSON
// decoding, keeping regular whitespace.
func stripControlChars(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, text)
}

// closeUnbalanced appends missing closing braces or brackets when the text is
// short by at most maxAutoClose, tracking nesting with a stack so closers
// come out in the right order.
func closeUnbalanced(text string) (string, error) {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", errors.Wrap(ErrNoStructure, "mismatched closer")
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inString {
		return "", errors.Wrap(ErrNoStructure, "unterminated string")
	}
	if len(stack) == 0 {
		return text, nil
	}
	if len(stack) > maxAutoClose {
		return "", errors.Wrap(ErrNoStructure, "too many missing closers")
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(text, " \t\n\r,"))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String(), nil
}
