package worker

import "strings"

// Candidates expands a free-text or @handle query into the ordered list of
// variants tried against channel search. Duplicates are removed
// case-insensitively, keeping the first occurrence.
func Candidates(raw string) []string {
	q := strings.TrimSpace(raw)

	var variants []string
	if strings.HasPrefix(q, "@") {
		h := strings.TrimSpace(strings.TrimPrefix(q, "@"))
		variants = []string{stripSpaces(h), h, hyphenate(h)}
	} else {
		variants = []string{q, stripSpaces(q), hyphenate(q)}
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func hyphenate(s string) string {
	return strings.Join(strings.Fields(s), "-")
}
