package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

type Complexity string

const (
	ComplexitySimple       Complexity = "simple"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityComplex      Complexity = "complex"
	ComplexityDangerous    Complexity = "dangerous"
)

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Suggestion codes, in emission order.
const (
	CodeDropObject       = "drop-object"
	CodeMissingWhere     = "missing-where"
	CodeInjectionLiteral = "injection-literal"
	CodeCartesianJoin    = "cartesian-join"
	CodeLimitSyntax      = "limit-syntax"
	CodeSelectStar       = "select-star"
	CodeUnindexedJoin    = "unindexed-join"
	CodeInlineLiteral    = "inline-literal"
)

var codeOrder = map[string]int{
	CodeDropObject:       0,
	CodeMissingWhere:     1,
	CodeInjectionLiteral: 2,
	CodeCartesianJoin:    3,
	CodeLimitSyntax:      4,
	CodeSelectStar:       5,
	CodeUnindexedJoin:    6,
	CodeInlineLiteral:    7,
}

type Suggestion struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// AdvisoryResult is the output of Analyze. "other" with low confidence is
// the unclassified result for input the analyzer cannot make sense of.
type AdvisoryResult struct {
	Operation   Operation    `json:"operation"`
	Confidence  Confidence   `json:"confidence"`
	Complexity  Complexity   `json:"complexity"`
	Suggestions []Suggestion `json:"suggestions"`
	Features    []string     `json:"features,omitempty"`
	Tips        []string     `json:"tips,omitempty"`
}

// HasCode reports whether a suggestion with the given code was emitted.
func (a AdvisoryResult) HasCode(code string) bool {
	for _, s := range a.Suggestions {
		if s.Code == code {
			return true
		}
	}
	return false
}

// IndexHints maps an upper-cased table name to the columns that lead an
// index (primary keys included).
type IndexHints map[string][]string

type analyzeOptions struct {
	hints IndexHints
}

type AnalyzeOption func(*analyzeOptions)

// WithSchema enables the unindexed join signature for the given tables.
func WithSchema(hints IndexHints) AnalyzeOption {
	return func(o *analyzeOptions) { o.hints = hints }
}

// Analyze inspects SQL text without executing it. It is deterministic and
// never fails.
func Analyze(sql string, opts ...AnalyzeOption) AdvisoryResult {
	var o analyzeOptions
	for _, opt := range opts {
		opt(&o)
	}

	raw := tokenize(sql)
	toks := significant(raw)
	st := classify(toks)

	res := AdvisoryResult{
		Operation:   st.Operation,
		Confidence:  ConfidenceHigh,
		Complexity:  ComplexitySimple,
		Suggestions: []Suggestion{},
	}
	if !st.Recognized {
		res.Confidence = ConfidenceLow
		return res
	}

	a := &analysis{toks: toks, raw: raw, st: st}
	a.scan()

	res.Suggestions = a.suggestions(o.hints)
	res.Complexity = a.complexity(res.Suggestions)
	res.Features = a.features()
	res.Tips = tipsFor(st.Operation, a)

	sort.SliceStable(res.Suggestions, func(i, j int) bool {
		si, sj := res.Suggestions[i], res.Suggestions[j]
		if si.Severity.rank() != sj.Severity.rank() {
			return si.Severity.rank() > sj.Severity.rank()
		}
		return codeOrder[si.Code] < codeOrder[sj.Code]
	})
	return res
}

// JoinedTables returns the tables referenced by join predicates, in
// first-seen order. Callers use it to fetch IndexHints before Analyze.
func JoinedTables(sql string) []string {
	toks := significant(tokenize(sql))
	st := classify(toks)
	if !st.Recognized {
		return nil
	}
	a := &analysis{toks: toks, st: st}
	a.scan()

	var out []string
	seen := map[string]bool{}
	for _, jp := range a.joinPairs {
		for _, alias := range []string{jp.leftAlias, jp.rightAlias} {
			table := a.resolve(alias)
			if !seen[table] {
				seen[table] = true
				out = append(out, table)
			}
		}
	}
	return out
}

type tableRef struct {
	name  string
	alias string
}

type joinPair struct {
	leftAlias, leftCol   string
	rightAlias, rightCol string
}

type analysis struct {
	toks []token
	raw  []token
	st   Statement

	hasWhere     bool
	hasRowLimit  bool
	selectStar   bool
	commaJoin    bool
	crossJoin    bool
	bareJoin     bool
	joins        int
	subqueries   int
	clauses      int
	tables       []tableRef
	joinPairs    []joinPair
	whereLiteral bool
	tautology    bool
	commentAfter bool
	limitKeyword bool
}

var clauseWords = map[string]bool{
	"WHERE": true, "GROUP": true, "HAVING": true, "ORDER": true, "UNION": true,
	"PLAN": true, "ROWS": true, "FETCH": true, "OFFSET": true, "FOR": true,
	"RETURNING": true, "SET": true, "VALUES": true, "MATCHING": true,
	"ON": true, "USING": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "FULL": true, "CROSS": true, "NATURAL": true, "WHEN": true,
}

func (a *analysis) scan() {
	toks := a.toks
	selects := 0
	inWhere := false

	for i, t := range toks {
		if t.kind == tokWord {
			switch t.text {
			case "SELECT":
				selects++
				if a.starAfterSelect(i) && t.depth == 0 {
					a.selectStar = true
				}
			case "WHERE":
				if t.depth == 0 {
					a.hasWhere = true
				}
				inWhere = true
			case "FIRST", "SKIP", "ROWS", "FETCH":
				a.hasRowLimit = true
			case "LIMIT":
				a.limitKeyword = true
			case "JOIN":
				a.joins++
				a.checkJoin(i)
			case "CROSS":
				if i+1 < len(toks) && toks[i+1].is("JOIN") {
					a.crossJoin = true
				}
			case "FROM", "UPDATE", "INTO":
				a.readTables(i + 1)
			case "GROUP", "HAVING", "ORDER", "UNION", "OVER", "WITH", "PARTITION", "CASE":
				a.clauses++
			case "OR":
				if inWhere && a.isTautology(i+1) {
					a.tautology = true
				}
			case "ON":
				a.readJoinCondition(i + 1)
			}
		}
		if t.kind == tokString && inWhere && i > 0 && isComparison(toks[i-1]) {
			a.whereLiteral = true
		}
	}
	if selects > 1 {
		a.subqueries = selects - 1
	}

	// A string literal directly followed by a line comment is the classic
	// shape of a closed-quote injection.
	for i := 0; i+1 < len(a.raw); i++ {
		if a.raw[i].kind == tokString && a.raw[i+1].kind == tokComment && strings.HasPrefix(a.raw[i+1].text, "--") {
			a.commentAfter = true
		}
	}
}

func (a *analysis) starAfterSelect(i int) bool {
	toks := a.toks
	j := i + 1
	// Skip DISTINCT/ALL and FIRST n / SKIP n, where n may be (expr).
	for j < len(toks) {
		switch {
		case toks[j].is("DISTINCT"), toks[j].is("ALL"):
			j++
		case toks[j].is("FIRST"), toks[j].is("SKIP"):
			j = skipOperand(toks, j+1)
		default:
			return j < len(toks) && toks[j].sym("*")
		}
	}
	return false
}

// skipOperand returns the index after the operand starting at j: a single
// token or a balanced parenthesised group.
func skipOperand(toks []token, j int) int {
	if j >= len(toks) || !toks[j].sym("(") {
		return j + 1
	}
	depth := toks[j].depth
	for j++; j < len(toks); j++ {
		if toks[j].sym(")") && toks[j].depth == depth {
			return j + 1
		}
	}
	return j
}

func (a *analysis) checkJoin(i int) {
	toks := a.toks
	if i > 0 && (toks[i-1].is("CROSS") || toks[i-1].is("NATURAL")) {
		return
	}
	depth := toks[i].depth
	for j := i + 1; j < len(toks); j++ {
		t := toks[j]
		if t.depth < depth {
			break
		}
		if t.depth > depth {
			continue
		}
		if t.is("ON") || t.is("USING") {
			return
		}
		if t.is("JOIN") || t.is("WHERE") || t.is("GROUP") || t.is("ORDER") || t.sym(";") {
			break
		}
	}
	a.bareJoin = true
}

// readTables records table references following FROM/UPDATE/INTO and
// detects comma joins.
func (a *analysis) readTables(start int) {
	toks := a.toks
	if start >= len(toks) {
		return
	}
	depth := toks[start].depth
	expectTable := true
	for j := start; j < len(toks); j++ {
		t := toks[j]
		if t.depth != depth {
			if t.depth < depth {
				return
			}
			continue
		}
		switch {
		case t.sym("("):
			expectTable = false
		case t.sym(","):
			if a.st.Operation == OpSelect || a.st.Operation == OpDelete {
				a.commaJoin = true
				expectTable = true
				continue
			}
			return
		case t.kind == tokWord && clauseWords[t.text]:
			if t.is("JOIN") && j+1 < len(toks) {
				// The table after JOIN is read by the next iteration.
				expectTable = true
				continue
			}
			if t.is("INNER") || t.is("LEFT") || t.is("RIGHT") || t.is("FULL") || t.is("CROSS") || t.is("NATURAL") || t.is("OUTER") {
				continue
			}
			if t.is("ON") || t.is("USING") {
				// Skip the condition up to the next JOIN or clause.
				expectTable = false
				continue
			}
			return
		case t.is("OUTER"):
			continue
		case (t.kind == tokWord || t.kind == tokQuoted) && expectTable:
			ref := tableRef{name: identName(t)}
			if j+1 < len(toks) && toks[j+1].is("AS") && j+2 < len(toks) {
				ref.alias = identName(toks[j+2])
				j += 2
			} else if j+1 < len(toks) && (toks[j+1].kind == tokWord || toks[j+1].kind == tokQuoted) && !clauseWords[toks[j+1].text] && !isStopWord(toks[j+1]) {
				ref.alias = identName(toks[j+1])
				j++
			}
			a.tables = append(a.tables, ref)
			expectTable = false
		}
	}
}

func isStopWord(t token) bool {
	switch t.text {
	case "OUTER", "WHERE", "SELECT", "FROM", "AS", "DEFAULT", "VALUES", "SET":
		return true
	}
	return false
}

func identName(t token) string {
	if t.kind == tokQuoted {
		return t.text
	}
	return strings.ToUpper(t.text)
}

// readJoinCondition collects a.x = b.y pairs following ON.
func (a *analysis) readJoinCondition(start int) {
	toks := a.toks
	for j := start; j < len(toks); j++ {
		if toks[j].kind == tokWord && clauseWords[toks[j].text] {
			return
		}
		if j+6 < len(toks) &&
			isIdent(toks[j]) && toks[j+1].sym(".") && isIdent(toks[j+2]) &&
			toks[j+3].sym("=") &&
			isIdent(toks[j+4]) && toks[j+5].sym(".") && isIdent(toks[j+6]) {
			a.joinPairs = append(a.joinPairs, joinPair{
				leftAlias: identName(toks[j]), leftCol: identName(toks[j+2]),
				rightAlias: identName(toks[j+4]), rightCol: identName(toks[j+6]),
			})
			j += 6
		}
	}
}

func isIdent(t token) bool {
	return t.kind == tokWord || t.kind == tokQuoted
}

func isComparison(t token) bool {
	if t.kind == tokSymbol {
		switch t.text {
		case "=", "<", ">", "<>", "!=", "<=", ">=", "^=", "~=":
			return true
		}
	}
	return t.is("LIKE") || t.is("CONTAINING") || t.is("STARTING")
}

// isTautology matches `x = x` where both operands are the same literal.
func (a *analysis) isTautology(i int) bool {
	toks := a.toks
	if i+2 >= len(toks) {
		return false
	}
	l, op, r := toks[i], toks[i+1], toks[i+2]
	literal := func(t token) bool { return t.kind == tokString || t.kind == tokNumber }
	return literal(l) && op.sym("=") && literal(r) && l.text == r.text
}

func (a *analysis) resolve(alias string) string {
	for _, t := range a.tables {
		if t.alias == alias || t.name == alias {
			return t.name
		}
	}
	return alias
}

func (a *analysis) suggestions(hints IndexHints) []Suggestion {
	var out []Suggestion
	add := func(code string, sev Severity, msg string) {
		out = append(out, Suggestion{Code: code, Severity: sev, Message: msg})
	}

	op := a.st.Operation

	if a.st.Keyword == "DROP" {
		add(CodeDropObject, SeverityCritical,
			"destructive DROP statement; verify the target and take a backup (gbak) before executing")
	}

	if (op == OpUpdate || op == OpDelete) && a.st.Keyword != "UPDATE OR INSERT" && !a.hasWhere {
		add(CodeMissingWhere, SeverityCritical,
			fmt.Sprintf("%s without WHERE affects every row in the table", strings.ToUpper(string(op))))
	}

	if a.tautology || a.commentAfter {
		add(CodeInjectionLiteral, SeverityHigh,
			"literal predicate looks like injected input (tautology or quote followed by comment); bind values with ? parameters")
	}

	if a.crossJoin || a.bareJoin || (a.commaJoin && !a.hasWhere) {
		add(CodeCartesianJoin, SeverityHigh,
			"join without a join condition produces a cartesian product; add ON/USING or a WHERE predicate")
	}

	if a.limitKeyword {
		add(CodeLimitSyntax, SeverityHigh,
			"LIMIT is not Firebird syntax; use SELECT FIRST n SKIP m, ROWS m TO n, or OFFSET/FETCH")
	}

	if a.selectStar {
		sev := SeverityMedium
		if !a.hasWhere && !a.hasRowLimit {
			sev = SeverityHigh
		}
		add(CodeSelectStar, sev,
			"unbounded SELECT * returns every column; list the needed columns and bound the rows with FIRST or ROWS")
	}

	if hints != nil {
		seen := map[string]bool{}
		for _, jp := range a.joinPairs {
			for _, side := range [][2]string{{jp.leftAlias, jp.leftCol}, {jp.rightAlias, jp.rightCol}} {
				table := a.resolve(side[0])
				cols, ok := hints[table]
				if !ok {
					continue
				}
				key := table + "." + side[1]
				if seen[key] || contains(cols, side[1]) {
					continue
				}
				seen[key] = true
				add(CodeUnindexedJoin, SeverityMedium,
					fmt.Sprintf("join column %s has no index; consider CREATE INDEX on %s (%s)", key, table, side[1]))
			}
		}
	}

	if a.whereLiteral && !a.tautology && !a.commentAfter {
		add(CodeInlineLiteral, SeverityLow,
			"string literal inlined in a predicate; prefer ? parameters for values that come from user input")
	}

	if out == nil {
		out = []Suggestion{}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (a *analysis) complexity(sugs []Suggestion) Complexity {
	for _, s := range sugs {
		if s.Code == CodeMissingWhere || s.Code == CodeDropObject {
			return ComplexityDangerous
		}
	}

	joins := a.joins
	if a.commaJoin {
		joins++
	}
	score := joins + 2*a.subqueries + a.clauses
	var length int
	for _, t := range a.toks {
		length += len(t.text) + 1
	}
	score += length / 250

	switch {
	case score <= 1:
		return ComplexitySimple
	case score <= 4:
		return ComplexityIntermediate
	default:
		return ComplexityComplex
	}
}

func (a *analysis) features() []string {
	var out []string
	has := func(w string) bool { return hasWord(a.toks, w) }

	if a.st.Keyword == "WITH" {
		out = append(out, "common table expression")
	}
	if has("OVER") {
		out = append(out, "window functions")
	}
	if has("MERGE") {
		out = append(out, "MERGE statement")
	}
	if a.st.Keyword == "UPDATE OR INSERT" {
		out = append(out, "UPDATE OR INSERT upsert")
	}
	if has("RETURNING") {
		out = append(out, "RETURNING clause")
	}
	if has("GLOBAL") && has("TEMPORARY") {
		out = append(out, "global temporary tables")
	}
	if a.st.Keyword == "EXECUTE BLOCK" || isPSQLBody(a.toks) {
		out = append(out, "PSQL procedural code")
	}
	if has("FIRST") || has("SKIP") || has("ROWS") {
		out = append(out, "FIRST/SKIP/ROWS row limiting")
	}
	return out
}

func tipsFor(op Operation, a *analysis) []string {
	var tips []string
	switch op {
	case OpSelect:
		tips = append(tips,
			"use FIRST/SKIP or ROWS for pagination",
			"prefer EXISTS over IN for correlated subqueries",
			"use UNION ALL when duplicates are acceptable",
		)
		if a.joins > 0 || a.commaJoin {
			tips = append(tips, "check the PLAN output to confirm join columns use indexes")
		}
		if hasWord(a.toks, "GROUP") {
			tips = append(tips, "index the GROUP BY columns")
		}
	case OpInsert:
		tips = append(tips,
			"batch inserts in appropriately sized transactions",
			"use UPDATE OR INSERT or MERGE for upserts",
		)
	case OpUpdate, OpDelete:
		tips = append(tips,
			"keep WHERE conditions selective and indexed",
			"split large modifications into batches to limit garbage collection",
		)
	case OpDDL:
		tips = append(tips, "schema changes may need exclusive access; run them outside peak load")
	}
	return append(tips,
		"keep transactions short to avoid back-version build-up",
		"reuse prepared statements with ? parameters",
		"monitor MON$ tables for runtime statistics",
	)
}
