// Package protocol implements the Protocol Engine (spec.md §4.D): the
// line-oriented, authenticated command/response wire format, dot-stuffed
// bodies, challenge-response and cookie authentication, per-command
// rights enforcement, and the streaming event-log subscription. Engine
// itself knows nothing about sockets — internal/server drives it with
// lines read off a reactor.Reader and writes its responses through a
// reactor.Writer, keeping the parsing/dispatch logic unit-testable
// without any network I/O.
package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// tokenize splits a protocol line into whitespace-separated tokens,
// honouring double-quoted strings with \\ and \" escapes (spec.md §4.D
// "Wire format"). An unbalanced quote is a parse error.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	i := 0
	runes := []rune(line)
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == '"':
			inToken = true
			i++
			for {
				if i >= len(runes) {
					return nil, fmt.Errorf("unbalanced quote")
				}
				if runes[i] == '"' {
					i++
					break
				}
				if runes[i] == '\\' {
					i++
					if i >= len(runes) {
						return nil, fmt.Errorf("unterminated escape")
					}
					cur.WriteRune(runes[i])
					i++
					continue
				}
				cur.WriteRune(runes[i])
				i++
			}
		case c == ' ' || c == '\t':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
			i++
		default:
			inToken = true
			cur.WriteRune(c)
			i++
		}
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// quoteToken renders s as a double-quoted token if it contains whitespace
// or a quote/backslash, matching the escaping tokenize expects to parse
// back.
func quoteToken(s string) string {
	needsQuote := s == ""
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '"' || r == '\\' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// ParseLine normalises line to NFC (spec.md §4.D "Lines are normalised
// to Unicode NFC before parsing") and tokenizes it.
func ParseLine(line string) ([]string, error) {
	line = strings.TrimRight(line, "\r\n")
	if !utf8.ValidString(line) {
		return nil, fmt.Errorf("invalid UTF-8")
	}
	line = norm.NFC.String(line)
	return tokenize(line)
}

// FormatReply renders a single response line: "<code> <message>\n".
func FormatReply(code int, message string) string {
	return fmt.Sprintf("%03d %s\n", code, message)
}

// stuffBody dot-stuffs body lines for transmission (spec.md §4.D "Body
// format"): a line starting with '.' gets an extra '.' prefix, and the
// body is terminated by a line containing a single '.'. Per spec.md §9
// Open Question (a), bytes are preserved exactly — no line-ending
// normalisation beyond the stuffing rule itself.
func stuffBody(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		if strings.HasPrefix(l, ".") {
			b.WriteByte('.')
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(".\n")
	return b.String()
}

// unstuffBodyLine reverses one line of dot-stuffing as it arrives; the
// caller detects the lone "." terminator itself before calling this.
func unstuffBodyLine(line string) string {
	if strings.HasPrefix(line, "..") {
		return line[1:]
	}
	return line
}

// FormatResult renders a successful command outcome as wire bytes,
// appending the dot-stuffed body when r.Body is non-nil (spec.md §4.D
// "Response codes" and "Body format"). internal/server calls this; it is
// the only place outside this package that needs to know the body is
// dot-stuffed.
func FormatResult(r *Result) string {
	reply := FormatReply(r.Code, r.Message)
	if r.Body == nil {
		return reply
	}
	return reply + stuffBody(r.Body)
}

// FormatError renders a failed command outcome as a single wire reply
// line.
func FormatError(e *Error) string {
	return FormatReply(e.Code, e.Message)
}
