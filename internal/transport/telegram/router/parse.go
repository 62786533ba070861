package router

import "strings"

// tokenize splits a command line on whitespace, keeping quoted runs together.
// A backslash escapes the next byte.
//
//	/add_chore "Take out bins" --schedule weekly
func tokenize(s string) []string {
	var (
		out   []string
		buf   strings.Builder
		quote rune
		esc   bool
		has   bool
	)
	flush := func() {
		if has {
			out = append(out, buf.String())
			buf.Reset()
			has = false
		}
	}
	for _, r := range strings.TrimSpace(s) {
		switch {
		case esc:
			buf.WriteRune(r)
			esc, has = false, true
		case r == '\\':
			esc = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			buf.WriteRune(r)
		case r == '"' || r == '\'' || r == '“' || r == '”':
			if r == '“' {
				quote = '”'
			} else {
				quote = r
			}
			has = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			buf.WriteRune(r)
			has = true
		}
	}
	flush()
	return out
}

// parseArgs splits tokens into the positional text and --flags. A flag's
// value runs until the next flag, so multi-word values need no quotes:
//
//	Bins --schedule every 2 weeks --start 20 Jul 2025
//
// yields text "Bins" and flags schedule="every 2 weeks", start="20 Jul 2025".
// "--k=v" is accepted too; a flag with no words has the value "".
// Telegram clients often turn "--" into an em dash, so "—k" counts as a flag.
func parseArgs(tokens []string) (text string, pos []string, flags map[string]string) {
	flags = map[string]string{}
	var (
		cur  string
		vals []string
		in   bool
	)
	closeFlag := func() {
		if in {
			flags[cur] = strings.Join(vals, " ")
		}
		vals = vals[:0]
	}
	for _, tok := range tokens {
		if key, val, ok := flagToken(tok); ok {
			closeFlag()
			cur, in = key, true
			if val != "" {
				vals = append(vals, val)
			}
			continue
		}
		if in {
			vals = append(vals, tok)
			continue
		}
		pos = append(pos, tok)
	}
	closeFlag()
	return strings.Join(pos, " "), pos, flags
}

func flagToken(tok string) (key, val string, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(tok, "--") && len(tok) > 2:
		rest = tok[2:]
	case strings.HasPrefix(tok, "—") && len(tok) > len("—"):
		rest = tok[len("—"):]
	default:
		return "", "", false
	}
	if i := strings.IndexByte(rest, '='); i >= 0 {
		rest, val = rest[:i], rest[i+1:]
	}
	key = strings.ToLower(strings.ReplaceAll(rest, "-", "_"))
	if key == "" {
		return "", "", false
	}
	return key, val, true
}

// commandWord extracts the command name from "/name@botname ...".
func commandWord(tok string) string {
	w := strings.TrimPrefix(tok, "/")
	if i := strings.IndexByte(w, '@'); i >= 0 {
		w = w[:i]
	}
	return strings.ToLower(w)
}
