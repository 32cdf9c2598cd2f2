// Package parser extracts bot mentions and commands from platform comment
// text. It is pure: no I/O, no clock reads beyond what callers pass in.
package parser

import (
	"strconv"
	"strings"

	"github.com/race-of-sloths/sloth-bot-go/internal/domain/model"
)

// Extract finds the first "@<handle> " mention in text (case-insensitive,
// trailing space or end-of-line required so a mention mid-word never
// matches) and splits the rest of that line into a verb and its arguments.
//
// Returns ok=false if no mention is present.
func Extract(botHandle, text string) (verb, args string, ok bool) {
	lower := strings.ToLower(text)
	mention := "@" + strings.ToLower(botHandle)

	idx := indexTokenStart(lower, mention)
	if idx < 0 {
		return "", "", false
	}

	rest := text[idx+len(mention):]
	// A mention must be followed by whitespace or end-of-string; "@botfoo"
	// is not a mention of "@bot".
	if len(rest) > 0 && !isSpace(rune(rest[0])) {
		return "", "", false
	}
	// Only the rest of the mention's own line carries the verb and args.
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimLeft(rest, " \t")

	if rest == "" {
		return "", "", true // "@bot" with nothing after it: verb = "".
	}

	fields := strings.Fields(rest)
	verb = strings.ToLower(fields[0])

	// args is everything after the first whitespace-delimited token on the
	// mention's line, preserving original casing and internal spacing.
	if sepIdx := strings.IndexAny(rest, " \t\n\r"); sepIdx >= 0 {
		args = strings.TrimSpace(rest[sepIdx:])
	}

	return verb, args, true
}

// indexTokenStart finds the first occurrence of mention in lower that is
// either at the start of the string or preceded by a non-word character
// (so "foo@bot" does not match "@bot" but "(@bot" and "\n@bot" do), and
// that is followed by whitespace or the end of the string (so "@botfoo" is
// passed over and a later "@bot " can still match).
func indexTokenStart(lower, mention string) int {
	start := 0
	for {
		i := strings.Index(lower[start:], mention)
		if i < 0 {
			return -1
		}
		pos := start + i
		end := pos + len(mention)
		if (pos == 0 || isWordBoundary(rune(lower[pos-1]))) &&
			(end == len(lower) || isSpace(rune(lower[end]))) {
			return pos
		}
		start = pos + 1
	}
}

func isWordBoundary(r rune) bool {
	return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

// ParsePR maps a (verb, args) pair extracted from a PR comment into a
// PRCommand.
func ParsePR(verb, args string) model.PRCommand {
	switch verb {
	case "score", "score:", "rate", "value":
		return model.PRCommand{Kind: model.PRCommandScore, RawScore: args}
	case "pause", "block":
		return model.PRCommand{Kind: model.PRCommandPause}
	case "unpause", "resume", "unblock":
		return model.PRCommand{Kind: model.PRCommandUnpause}
	case "exclude", "leave":
		return model.PRCommand{Kind: model.PRCommandExclude}
	case "include", "in", "start", "join", "invite":
		return model.PRCommand{Kind: model.PRCommandInclude}
	case "update":
		return model.PRCommand{Kind: model.PRCommandUpdate}
	}

	if verb != "" && isAllDigits(verb) {
		return model.PRCommand{Kind: model.PRCommandScore, RawScore: verb}
	}

	return model.PRCommand{Kind: model.PRCommandUnknown, Verb: verb, Args: args}
}

// ParseBody detects a bare bot mention anywhere in the PR body and, if
// found, returns an implicit Include command.
func ParseBody(botHandle, body string) (model.PRCommand, bool) {
	if strings.Contains(strings.ToLower(body), "@"+strings.ToLower(botHandle)) {
		return model.PRCommand{Kind: model.PRCommandInclude}, true
	}
	return model.PRCommand{}, false
}

// ParseIssue maps the verb extracted from an issue comment into an
// IssueCommand. Only an explicit unpause-style verb matches; everything
// else yields ok=false.
func ParseIssue(verb string) (model.IssueCommand, bool) {
	switch verb {
	case "yes", "approve", "add", "accept":
		return model.IssueCommand{Kind: model.IssueCommandUnpause, FromIssue: true}, true
	default:
		return model.IssueCommand{}, false
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeScore parses the first whitespace-delimited token of args as an
// unsigned integer and snaps it to the nearest allowed score. edited
// reports whether the input required correction.
func NormalizeScore(args string) (score uint64, edited bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, true
	}

	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, true
	}

	for _, allowed := range model.AllowedScores {
		if allowed == n {
			return n, false
		}
	}

	return nearestAllowed(n), true
}

// nearestAllowed returns the value in model.AllowedScores closest to n,
// preferring the smallest on a tie.
func nearestAllowed(n uint64) uint64 {
	best := model.AllowedScores[0]
	bestDist := distance(n, best)
	for _, v := range model.AllowedScores[1:] {
		d := distance(n, v)
		if d < bestDist || (d == bestDist && v < best) {
			best = v
			bestDist = d
		}
	}
	return best
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
