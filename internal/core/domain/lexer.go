package domain

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokNumber
	tokQuoted
	tokSymbol
	tokParam
	tokComment
)

type token struct {
	kind  tokenKind
	text  string // words are upper-cased; string literals keep their body
	depth int    // parenthesis depth at the token
}

func (t token) is(word string) bool {
	return t.kind == tokWord && t.text == word
}

func (t token) sym(s string) bool {
	return t.kind == tokSymbol && t.text == s
}

// tokenize splits Firebird SQL into tokens. It never fails: unterminated
// literals and comments run to the end of input.
func tokenize(sql string) []token {
	var (
		toks  []token
		depth int
		rs    = []rune(sql)
	)

	emit := func(kind tokenKind, text string) {
		toks = append(toks, token{kind: kind, text: text, depth: depth})
	}

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			j := i + 2
			for j < len(rs) && rs[j] != '\n' {
				j++
			}
			emit(tokComment, string(rs[i:j]))
			i = j

		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			j := i + 2
			for j+1 < len(rs) && (rs[j] != '*' || rs[j+1] != '/') {
				j++
			}
			end := min(j+2, len(rs))
			emit(tokComment, string(rs[i:end]))
			i = end

		case r == '\'':
			body, next := readQuoted(rs, i, '\'')
			emit(tokString, body)
			i = next

		case r == '"':
			body, next := readQuoted(rs, i, '"')
			emit(tokQuoted, body)
			i = next

		case r == '?':
			emit(tokParam, "?")
			i++

		case r == ':' && i+1 < len(rs) && isIdentStart(rs[i+1]):
			j := i + 1
			for j < len(rs) && isIdentPart(rs[j]) {
				j++
			}
			emit(tokParam, string(rs[i:j]))
			i = j

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.' || rs[j] == 'e' || rs[j] == 'E') {
				j++
			}
			emit(tokNumber, string(rs[i:j]))
			i = j

		case isIdentStart(r):
			j := i + 1
			for j < len(rs) && isIdentPart(rs[j]) {
				j++
			}
			emit(tokWord, strings.ToUpper(string(rs[i:j])))
			i = j

		case r == '(':
			emit(tokSymbol, "(")
			depth++
			i++

		case r == ')':
			if depth > 0 {
				depth--
			}
			emit(tokSymbol, ")")
			i++

		default:
			if i+1 < len(rs) {
				two := string(rs[i : i+2])
				switch two {
				case "<>", "!=", "<=", ">=", "||", "^=", "~=":
					emit(tokSymbol, two)
					i += 2
					continue
				}
			}
			emit(tokSymbol, string(r))
			i++
		}
	}
	return toks
}

// readQuoted reads a literal starting at rs[start] (the opening quote) where
// a doubled quote is an escaped quote. It returns the unescaped body and the
// index after the closing quote.
func readQuoted(rs []rune, start int, q rune) (string, int) {
	var b strings.Builder
	i := start + 1
	for i < len(rs) {
		if rs[i] == q {
			if i+1 < len(rs) && rs[i+1] == q {
				b.WriteRune(q)
				i += 2
				continue
			}
			return b.String(), i + 1
		}
		b.WriteRune(rs[i])
		i++
	}
	return b.String(), i
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}

// significant drops comments.
func significant(toks []token) []token {
	out := make([]token, 0, len(toks))
	for _, t := range toks {
		if t.kind != tokComment {
			out = append(out, t)
		}
	}
	return out
}
