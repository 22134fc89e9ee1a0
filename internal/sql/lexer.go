package sql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vddb/vddb/internal/types"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind tokKind
	text string
}

// keyword compares an identifier token case-insensitively.
func (t token) keyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (t token) symbol(s string) bool {
	return t.kind == tokSymbol && t.text == s
}

// lex splits a statement into tokens. Strings are single-quoted with ''
// escaping; the two-char operators !=, <>, <=, >= are single tokens.
func lex(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '\'':
			i++
			var b strings.Builder
			closed := false
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						b.WriteRune('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("parser: unterminated string literal: %w", types.ErrQuery)
			}
			toks = append(toks, token{kind: tokString, text: b.String()})

		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[i:j])})
			i = j

		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[i:j])})
			i = j

		case strings.ContainsRune("(),.*=<>!-", r):
			if i+1 < len(runes) {
				two := string(runes[i : i+2])
				if two == "!=" || two == "<>" || two == "<=" || two == ">=" {
					toks = append(toks, token{kind: tokSymbol, text: two})
					i += 2
					continue
				}
			}
			if r == '!' {
				return nil, fmt.Errorf("parser: unexpected %q: %w", r, types.ErrQuery)
			}
			toks = append(toks, token{kind: tokSymbol, text: string(r)})
			i++

		default:
			return nil, fmt.Errorf("parser: unexpected %q: %w", r, types.ErrQuery)
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}
