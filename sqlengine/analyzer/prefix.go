package analyzer

import "strings"

// explainDecorators are the optional bare keywords that may follow EXPLAIN
// (or a parenthesized option list) across the MySQL/Postgres/SQLite
// dialects before the real inner statement starts.
var explainDecorators = map[string]bool{
	"ANALYZE": true, "ANALYSE": true, "VERBOSE": true, "QUERY": true,
	"PLAN": true, "FORMAT": true, "JSON": true, "TEXT": true, "XML": true,
	"YAML": true, "COSTS": true, "BUFFERS": true, "TIMING": true, "SUMMARY": true,
}

// peelExplain detects a leading EXPLAIN (optionally with a parenthesized
// Postgres-style option list, or bare decorator keywords like the SQLite
// "EXPLAIN QUERY PLAN" form) and returns the inner statement text. xwb1989's
// grammar does not model any of these forms, so this runs before the real
// parser is invoked at all.
func peelExplain(sql string) (string, bool) {
	stripped := stripLiterals(sql)
	word, offset := firstWord(stripped, 0)
	if !strings.EqualFold(word, "EXPLAIN") {
		return "", false
	}

	offset = skipSpaces(stripped, offset)
	if offset < len(stripped) && stripped[offset] == '(' {
		depth := 0
		for offset < len(stripped) {
			if stripped[offset] == '(' {
				depth++
			} else if stripped[offset] == ')' {
				depth--
				if depth == 0 {
					offset++
					break
				}
			}
			offset++
		}
	}

	for {
		offset = skipSpaces(stripped, offset)
		w, next := firstWord(stripped, offset)
		if w == "" || !explainDecorators[strings.ToUpper(w)] {
			break
		}
		offset = next
	}

	offset = skipSpaces(stripped, offset)
	if offset >= len(sql) {
		return "", false
	}
	return sql[offset:], true
}

// peelDescribe detects a leading DESCRIBE/DESC <object> shorthand, which
// the chosen grammar does not parse, and returns a classification label
// without needing to parse the object name itself (describing a table is
// always read-only regardless of what follows).
func peelDescribe(sql string) (string, bool) {
	stripped := stripLiterals(sql)
	word, offset := firstWord(stripped, 0)
	if !strings.EqualFold(word, "DESCRIBE") && !strings.EqualFold(word, "DESC") {
		return "", false
	}
	if strings.TrimSpace(sql[offset:]) == "" {
		return "", false
	}
	return "DESCRIBE", true
}

// isCallStatement detects a leading CALL keyword. Stored-procedure call
// syntax is not part of the chosen grammar; the engine only needs to route
// it, not parse its argument list.
func isCallStatement(sql string) bool {
	stripped := stripLiterals(sql)
	word, _ := firstWord(stripped, 0)
	return strings.EqualFold(word, "CALL")
}

// firstWord returns the first run of letters/digits/underscore found at or
// after start (skipping leading whitespace), and the offset immediately
// following it. Both offsets are byte offsets valid against the original
// (equal-length) string stripLiterals was given.
func firstWord(s string, start int) (string, int) {
	i := skipSpaces(s, start)
	j := i
	for j < len(s) && isWordByte(s[j]) {
		j++
	}
	return s[i:j], j
}

func skipSpaces(s string, start int) int {
	i := start
	for i < len(s) && isSpaceByte(s[i]) {
		i++
	}
	return i
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// tokenWords splits a literal-stripped SQL string into its upper-cased
// word tokens, discarding all punctuation, whitespace, and (already
// blanked) literal/comment content. It is a deliberately coarse lexer:
// good enough to recognize a fixed sequence of leading keywords, never
// used to reconstruct or re-execute the statement.
func tokenWords(s string) []string {
	var out []string
	i := 0
	n := len(s)
	for i < n {
		if isWordByte(s[i]) {
			j := i
			for j < n && isWordByte(s[j]) {
				j++
			}
			out = append(out, toUpperASCII(s[i:j]))
			i = j
		} else {
			i++
		}
	}
	return out
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
