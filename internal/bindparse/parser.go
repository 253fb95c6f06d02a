package bindparse

import (
	"fmt"
	"strings"
)

// Pair is one `key: expression` entry of a binding literal.
type Pair struct {
	Key   string
	Value string
}

// ParseError reports a malformed binding literal.
type ParseError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("binding parse error at offset %d in %q: %s", e.Offset, e.Input, e.Msg)
}

// Parse splits a binding literal such as `foreach: items, as: 'x'` into its
// pairs, in declared order. Surrounding braces are optional.
func Parse(s string) ([]Pair, error) {
	body := strings.TrimSpace(s)
	if strings.HasPrefix(body, "{") && closingBrace(body) == len(body)-1 {
		body = body[1 : len(body)-1]
	}

	parts, err := splitTopLevel(s, body)
	if err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part.text) == "" {
			// tolerate trailing commas
			continue
		}
		pair, err := splitPair(s, part)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// ParseObject parses an object-valued binding such as `{title: t, alt: a}`.
func ParseObject(value string) ([]Pair, error) {
	v := strings.TrimSpace(value)
	if !IsObject(v) {
		return nil, &ParseError{Input: value, Offset: 0, Msg: "expected object literal"}
	}
	return Parse(v)
}

// IsObject reports whether value is a single braced object literal.
func IsObject(value string) bool {
	v := strings.TrimSpace(value)
	return strings.HasPrefix(v, "{") && closingBrace(v) == len(v)-1
}

// Unquote strips matching single or double quotes around a literal.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return unescape(s[1 : len(s)-1])
	}
	return s
}

type segment struct {
	text   string
	offset int
}

// closingBrace returns the index of the brace closing s[0], or -1.
func closingBrace(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(input, body string) ([]segment, error) {
	base := strings.Index(input, body)
	if base < 0 {
		base = 0
	}

	var (
		parts  []segment
		stack  []byte
		quote  byte
		qStart int
		start  int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			qStart = i
		case '{', '[', '(':
			stack = append(stack, c)
		case '}', ']', ')':
			if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
				return nil, &ParseError{Input: input, Offset: base + i, Msg: fmt.Sprintf("unbalanced %q", c)}
			}
			stack = stack[:len(stack)-1]
		case ',':
			if len(stack) == 0 {
				parts = append(parts, segment{text: body[start:i], offset: base + start})
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, &ParseError{Input: input, Offset: base + qStart, Msg: "unterminated string literal"}
	}
	if len(stack) > 0 {
		return nil, &ParseError{Input: input, Offset: base + len(body), Msg: fmt.Sprintf("missing closing for %q", stack[len(stack)-1])}
	}
	parts = append(parts, segment{text: body[start:], offset: base + start})
	return parts, nil
}

func opener(c byte) byte {
	switch c {
	case '}':
		return '{'
	case ']':
		return '['
	}
	return '('
}

func splitPair(input string, part segment) (Pair, error) {
	text := part.text
	colon := -1
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if c == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		return Pair{}, &ParseError{Input: input, Offset: part.offset, Msg: fmt.Sprintf("missing ':' in %q", strings.TrimSpace(text))}
	}

	key := Unquote(text[:colon])
	if key == "" {
		return Pair{}, &ParseError{Input: input, Offset: part.offset, Msg: "empty binding key"}
	}
	value := strings.TrimSpace(text[colon+1:])
	if value == "" {
		return Pair{}, &ParseError{Input: input, Offset: part.offset + colon, Msg: fmt.Sprintf("empty value for %q", key)}
	}
	return Pair{Key: key, Value: value}, nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
