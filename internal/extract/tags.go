package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseTags normalizes the tags of a track. Accepted inputs, tried in order:
// a sequence, a JSON-encoded array, a comma separated string and a
// whitespace separated string. Empty tokens are always dropped and the
// result is never nil.
func ParseTags(v interface{}) []string {
	tags := []string{}

	switch t := v.(type) {
	case nil:
		return tags
	case []string:
		return appendTokens(tags, t...)
	case []interface{}:
		for _, item := range t {
			if item == nil {
				continue
			}
			tags = appendTokens(tags, fmt.Sprint(item))
		}
		return tags
	case string:
		return parseTagString(t)
	default:
		return appendTokens(tags, fmt.Sprint(t))
	}
}

func parseTagString(s string) []string {
	tags := []string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return tags
	}

	if decoded, ok := decodeTagArray(s); ok {
		return appendTokens(tags, decoded...)
	}

	if strings.Contains(s, ",") {
		return appendTokens(tags, strings.Split(s, ",")...)
	}
	return appendTokens(tags, strings.Fields(s)...)
}

// decodeTagArray decodes a JSON array of tags, repairing it first when it
// is malformed (unbalanced brackets, single quotes, trailing commas).
func decodeTagArray(s string) ([]string, bool) {
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}

	var items []interface{}
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(s)
		if rerr != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(fixed), &items); err != nil {
			return nil, false
		}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out, true
}

func appendTokens(dst []string, tokens ...string) []string {
	for _, tok := range tokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			dst = append(dst, tok)
		}
	}
	return dst
}
