package record

import "strings"

// The record format reuses '<' and '>' structurally, but the comment is free
// text the operator may fill with anything, including tag-like substrings.
// Before a record is serialized the comment's angle brackets are swapped for
// two sentinel code points that survive the Windows-1252 encoding (single
// guillemets, bytes 0x8B/0x9B), so the portal's reader never mistakes them
// for markup. Ampersands become &amp;, with a guard placeholder so a comment
// that already went through one encode pass is not escaped twice.
const (
	sentinelLT = '\u2039' // single left guillemet
	sentinelGT = '\u203a' // single right guillemet
	ampGuard   = '\x01'   // never hits disk; swapped back before serialization

	tokenLT = "[[lt]]"
	tokenGT = "[[gt]]"
)

func escapeComment(comment string) string {
	out := strings.ReplaceAll(comment, "&amp;", string(ampGuard))
	out = strings.ReplaceAll(out, "&", "&amp;")
	out = strings.ReplaceAll(out, string(ampGuard), "&amp;")
	out = strings.ReplaceAll(out, "<", string(sentinelLT))
	out = strings.ReplaceAll(out, ">", string(sentinelGT))
	return out
}

func unescapeComment(comment string) string {
	out := strings.ReplaceAll(comment, tokenLT, "<")
	out = strings.ReplaceAll(out, tokenGT, ">")
	out = strings.ReplaceAll(out, "&amp;", "&")
	return out
}

// prepareRaw runs on the raw file text before structural parsing: sentinel
// code points become ASCII placeholder tokens and stray control characters,
// which corrupt the parser, are dropped.
func prepareRaw(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == sentinelLT:
			b.WriteString(tokenLT)
		case r == sentinelGT:
			b.WriteString(tokenGT)
		case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
			// drop
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
