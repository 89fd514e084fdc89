package collections

import (
	"sort"
	"strings"
)

// ResolveContext returns the concatenated framing text for a report file name.
// Every ReportContext key that prefixes the name matches. Matches are ordered
// shortest prefix first and joined with "\n\n". Returns "" if none match.
func (c *Collection) ResolveContext(report string) string {
	if c == nil || len(c.ReportContext) == 0 {
		return ""
	}

	type match struct {
		prefix string
		value  string
	}

	var matches []match
	for prefix, value := range c.ReportContext {
		if strings.HasPrefix(report, prefix) && value != "" {
			matches = append(matches, match{prefix: prefix, value: value})
		}
	}

	if len(matches) == 0 {
		return ""
	}

	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i].prefix) != len(matches[j].prefix) {
			return len(matches[i].prefix) < len(matches[j].prefix)
		}
		return matches[i].prefix < matches[j].prefix
	})

	values := make([]string, len(matches))
	for i, m := range matches {
		values[i] = m.value
	}
	return strings.Join(values, "\n\n")
}
