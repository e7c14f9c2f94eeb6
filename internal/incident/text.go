package incident

import (
	"strings"
	"unicode"
)

// boilerplateMarkers identify sentences that carry no incident fact
// (update promises, apologies, support pointers).
var boilerplateMarkers = []string{
	"we will provide",
	"provide an update",
	"provide updates",
	"next update",
	"thank you for your patience",
	"we apologize",
	"apologize for",
	"sorry for",
	"contact our support",
	"please contact",
	"continue to monitor",
	"continue monitoring",
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// SplitSentences splits a message into sentences. Each line is split on
// terminal punctuation followed by whitespace; block lines such as
// "Affected: API" are their own sentence.
func SplitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(line, "**", "")
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line == "" {
			continue
		}
		rs := []rune(line)
		start := 0
		for i, r := range rs {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			if i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
				continue
			}
			if s := strings.TrimSpace(string(rs[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
		if start < len(rs) {
			if s := strings.TrimSpace(string(rs[start:])); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// boilerplateFiller holds the words that may surround a marker in a sentence
// that states no fact.
var boilerplateFiller = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a an the and or but if as to of for in on at by with within
		we i you your our us it this that there any all is are be been have has had will may might can could
		soon sooner possible once when until more further next again information details update updates
		minutes minute hours hour approximately about around meantime
		thank thanks patience understanding apologize apologies sorry inconvenience caused
		please contact reach out support team customers continue experience experiencing issues
		monitor monitoring closely keep informed expect make progress`) {
		boilerplateFiller[w] = true
	}
}

// IsBoilerplate reports whether a sentence states no incident fact and
// therefore needs no evidence mapping. Short headings ("Summary:") count. A
// sentence qualifies only when it carries a marker and every word outside the
// markers is filler; "We apologize that all customer data was lost." does not.
func IsBoilerplate(sentence string) bool {
	s := strings.TrimSpace(sentence)
	if strings.HasSuffix(s, ":") && WordCount(s) <= 3 {
		return true
	}
	tokens := strings.Fields(Normalize(s))
	inMarker := make([]bool, len(tokens))
	found := false
	for _, m := range boilerplateMarkers {
		mt := strings.Fields(m)
		for i := indexTokens(tokens, mt, 0); i >= 0; i = indexTokens(tokens, mt, i+1) {
			found = true
			for j := range mt {
				inMarker[i+j] = true
			}
		}
	}
	if !found {
		return false
	}
	for i, tok := range tokens {
		if inMarker[i] || boilerplateFiller[tok] || isNumber(tok) {
			continue
		}
		return false
	}
	return true
}

func isNumber(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return tok != ""
}

// indexTokens returns the first index at or after from where needle occurs
// as a contiguous run in haystack, or -1.
func indexTokens(haystack, needle []string, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, w := range needle {
			if haystack[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Normalize lowercases text and reduces it to letters and digits separated by single spaces.
func Normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// minSpanShare is the share of a sentence's words a partial span must cover.
const minSpanShare = 0.6

// Covers reports whether a mapping span corresponds to a sentence, comparing
// whole words after normalization. The sentence is covered when it appears in
// full inside the span, or when the span is a run of at least three of the
// sentence's words making up at least minSpanShare of it.
func Covers(sentence, span string) bool {
	ns, np := strings.Fields(Normalize(sentence)), strings.Fields(Normalize(span))
	if len(ns) == 0 || len(np) == 0 {
		return false
	}
	if indexTokens(np, ns, 0) >= 0 {
		return true
	}
	if len(np) < 3 || float64(len(np)) < minSpanShare*float64(len(ns)) {
		return false
	}
	return indexTokens(ns, np, 0) >= 0
}

// ContainsAny returns the markers present in text (case-insensitive).
func ContainsAny(text string, markers []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, m := range markers {
		if strings.Contains(lower, m) {
			out = append(out, m)
		}
	}
	return out
}
