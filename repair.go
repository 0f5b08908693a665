package ledgerline

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// maxRepairClosers bounds how many closing brackets a repair may append.
// Output needing more than this is too damaged to trust.
const maxRepairClosers = 8

// RepairJSON makes a bounded attempt to fix the kind of damage language
// models inflict on structured output: markdown code fences around the
// document, prose before the first bracket, and truncation that leaves
// brace/bracket nesting or a string literal unclosed.
//
// It never invents content: the repair only trims wrapping and appends the
// closers the nesting stack still needs. Anything beyond that is returned
// as an error for the caller to reject.
func RepairJSON(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))

	// Strip markdown fences.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	// Drop prose before the document.
	if i := strings.IndexAny(s, "[{"); i > 0 {
		s = s[i:]
	} else if i < 0 {
		return nil, errors.New("no JSON document found")
	}

	// Scan the nesting and string state.
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced %q at offset %d", c, i)
			}
			open := stack[len(stack)-1]
			if (c == '}' && open != '{') || (c == ']' && open != '[') {
				return nil, fmt.Errorf("mismatched %q at offset %d", c, i)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if !inString && len(stack) == 0 {
		return []byte(s), nil
	}
	if len(stack) > maxRepairClosers {
		return nil, fmt.Errorf("nesting %d levels deep left open, beyond repair", len(stack))
	}

	var b bytes.Buffer
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	// A truncation commonly cuts mid-value; drop dangling separators, and a
	// key left without its value, before closing so the result stays parsable.
	trimmed := bytes.TrimRight(b.Bytes(), ", \t\n")
	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == ':' {
		trimmed = dropTrailingKey(bytes.TrimRight(trimmed[:len(trimmed)-1], " \t\n"))
		trimmed = bytes.TrimRight(trimmed, ", \t\n")
	}
	b = *bytes.NewBuffer(trimmed)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.Bytes(), nil
}

// dropTrailingKey removes a trailing string literal, walking back past
// escaped quotes. Input not ending in a string is returned unchanged.
func dropTrailingKey(s []byte) []byte {
	if len(s) == 0 || s[len(s)-1] != '"' {
		return s
	}
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		// Count the backslashes before the quote; an even run means the
		// quote is real.
		n := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			n++
		}
		if n%2 == 0 {
			return s[:i]
		}
	}
	return s
}
