package pipeline

import "strings"

const fence = "```"

// ParseFenced splits a synthesis response into an optional code fragment and
// the narrative text. The fragment is the body of the first fenced block,
// where the opening fence may carry a language tag on the fence line. If the
// opening or closing fence is missing, the whole response is narrative and no
// code is produced. On success the narrative is the text preceding the
// opening fence.
func ParseFenced(raw string) (code, narrative string) {
	start := strings.Index(raw, fence)
	if start < 0 {
		return "", strings.TrimSpace(raw)
	}

	rest := raw[start+len(fence):]
	nl := strings.Index(rest, "\n")
	if nl < 0 {
		return "", strings.TrimSpace(raw)
	}

	body := rest[nl+1:]
	end := strings.Index(body, fence)
	if end < 0 {
		return "", strings.TrimSpace(raw)
	}

	return strings.TrimSpace(body[:end]), strings.TrimSpace(raw[:start])
}
