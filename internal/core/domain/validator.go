package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
)

// Operation is the coarse statement classification.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpDDL    Operation = "ddl"
	OpOther  Operation = "other"
)

// Statement describes how a single SQL statement must be executed.
type Statement struct {
	Operation Operation
	// Keyword is the leading keyword (or keyword pair such as EXECUTE BLOCK).
	Keyword string
	// ReturnsRows selects RowSet framing over AffectedCount.
	ReturnsRows bool
	// Recognized is false when the leading keyword is unknown or missing.
	Recognized bool
}

// QueryValidator checks that execute_query input is one statement and
// classifies it by its leading keyword.
type QueryValidator struct{}

func NewQueryValidator() *QueryValidator {
	return &QueryValidator{}
}

// Validate rejects empty and multi-statement input and returns the
// classification of the single statement.
func (v *QueryValidator) Validate(sql string) (Statement, error) {
	toks := significant(tokenize(sql))
	if len(toks) == 0 {
		return Statement{}, ErrEmptyQuery
	}

	if isPSQLBody(toks) {
		if countStatements(toks[psqlBodyEnd(toks):]) > 0 {
			return Statement{}, ErrMultiStatement
		}
	} else if countStatements(toks) > 1 {
		return Statement{}, ErrMultiStatement
	}

	if countStatements(toks) == 0 {
		return Statement{}, ErrEmptyQuery
	}

	return classify(toks), nil
}

// Classify returns the statement classification without validating shape.
func Classify(sql string) Statement {
	return classify(significant(tokenize(sql)))
}

func classify(toks []token) Statement {
	// Leading semicolons carry no statement.
	for len(toks) > 0 && toks[0].sym(";") {
		toks = toks[1:]
	}
	if len(toks) == 0 || toks[0].kind != tokWord {
		return Statement{Operation: OpOther}
	}

	first := toks[0].text
	second := ""
	if len(toks) > 1 && toks[1].kind == tokWord {
		second = toks[1].text
	}
	returning := hasWord(toks, "RETURNING")

	st := Statement{Keyword: first, Recognized: true}
	switch first {
	case "SELECT", "WITH":
		st.Operation = OpSelect
		st.ReturnsRows = true
	case "INSERT":
		st.Operation = OpInsert
		st.ReturnsRows = returning
	case "UPDATE":
		st.Operation = OpUpdate
		if second == "OR" {
			st.Keyword = "UPDATE OR INSERT"
			st.Operation = OpInsert
		}
		st.ReturnsRows = returning
	case "DELETE":
		st.Operation = OpDelete
		st.ReturnsRows = returning
	case "MERGE":
		st.Operation = OpOther
		st.ReturnsRows = returning
	case "CREATE", "ALTER", "DROP", "RECREATE", "COMMENT", "GRANT", "REVOKE", "DECLARE":
		st.Operation = OpDDL
	case "SET":
		st.Operation = OpOther
		if second == "GENERATOR" || second == "STATISTICS" {
			st.Operation = OpDDL
		}
	case "EXECUTE":
		st.Operation = OpOther
		st.Keyword = strings.TrimSpace("EXECUTE " + second)
		switch second {
		case "BLOCK":
			st.ReturnsRows = hasWord(toks, "RETURNS")
		case "PROCEDURE":
			st.ReturnsRows = true
		}
	default:
		st.Operation = OpOther
		st.Recognized = false
	}
	return st
}

// isPSQLBody reports whether the statement carries a procedural body whose
// inner semicolons do not separate statements.
func isPSQLBody(toks []token) bool {
	words := leadingWords(toks, 5)
	if len(words) >= 2 && words[0] == "EXECUTE" && words[1] == "BLOCK" {
		return true
	}
	if len(words) == 0 {
		return false
	}
	switch words[0] {
	case "CREATE", "ALTER", "RECREATE":
	default:
		return false
	}
	for _, w := range words[1:] {
		switch w {
		case "PROCEDURE", "TRIGGER", "FUNCTION", "PACKAGE":
			return true
		case "OR", "ALTER":
		default:
			return false
		}
	}
	return false
}

// psqlBodyEnd returns the index just past the END that closes the body's
// outermost BEGIN, or len(toks) when the body never closes. Semicolons in
// declarations before the first BEGIN belong to the body.
func psqlBodyEnd(toks []token) int {
	depth := 0
	for i, t := range toks {
		switch {
		case t.is("BEGIN"), depth > 0 && t.is("CASE"):
			depth++
		case depth > 0 && t.is("END"):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(toks)
}

func leadingWords(toks []token, n int) []string {
	var out []string
	for _, t := range toks {
		if t.kind != tokWord || len(out) == n {
			break
		}
		out = append(out, t.text)
	}
	return out
}

// countStatements counts non-empty segments separated by top-level ';'.
func countStatements(toks []token) int {
	n, pending := 0, false
	for _, t := range toks {
		if t.sym(";") && t.depth == 0 {
			if pending {
				n++
			}
			pending = false
			continue
		}
		pending = true
	}
	if pending {
		n++
	}
	return n
}

func hasWord(toks []token, word string) bool {
	for _, t := range toks {
		if t.is(word) {
			return true
		}
	}
	return false
}
