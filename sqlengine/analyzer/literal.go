package analyzer

// stripLiterals returns sql with the contents of every single-quoted,
// double-quoted, and backtick-quoted span, and every line/block comment,
// replaced with spaces. Byte length and all unquoted punctuation and
// keywords are preserved, so callers can run simple substring/keyword
// checks against the result without a quoted literal or a comment ever
// being able to forge a keyword match.
func stripLiterals(sql string) string {
	out := []byte(sql)
	n := len(out)
	i := 0
	for i < n {
		c := out[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote := c
			out[i] = ' '
			i++
			for i < n {
				if out[i] == quote {
					if i+1 < n && out[i+1] == quote {
						out[i] = ' '
						out[i+1] = ' '
						i += 2
						continue
					}
					out[i] = ' '
					i++
					break
				}
				if out[i] == '\\' && quote != '`' && i+1 < n {
					out[i] = ' '
					out[i+1] = ' '
					i += 2
					continue
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		case c == '-' && i+1 < n && out[i+1] == '-':
			for i < n && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '#':
			for i < n && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < n && out[i+1] == '*':
			out[i] = ' '
			out[i+1] = ' '
			i += 2
			for i < n && !(out[i] == '*' && i+1 < n && out[i+1] == '/') {
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i+1 < n {
				out[i] = ' '
				out[i+1] = ' '
				i += 2
			}
		default:
			i++
		}
	}
	return string(out)
}
