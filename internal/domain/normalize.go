package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CanonicalizeDomain converts a raw domain value into a clean, comparable
// hostname: lowercased, with scheme, credentials, path/query/fragment and
// port stripped and dot runs collapsed. It is idempotent and never fails;
// unusable input yields the empty string.
func CanonicalizeDomain(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	s = stripScheme(s)

	// Credentials: keep everything after the last '@'.
	if at := strings.LastIndexByte(s, '@'); at != -1 {
		s = s[at+1:]
	}

	// Cut off path, query and fragment.
	if i := strings.IndexAny(s, "/?#"); i != -1 {
		s = s[:i]
	}

	s = stripPort(s)

	// Trim stray dots and collapse runs of dots.
	s = strings.Trim(s, ".")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	return strings.TrimSpace(s)
}

// stripScheme removes a leading "<scheme>://" where scheme matches
// [a-z][a-z0-9+.-]*. The input is already lowercased.
func stripScheme(s string) string {
	i := strings.Index(s, "://")
	if i <= 0 {
		return s
	}
	for j := 0; j < i; j++ {
		c := s[j]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && j > 0:
		case (c == '+' || c == '.' || c == '-') && j > 0:
		default:
			return s
		}
	}
	return s[i+3:]
}

// stripPort removes a trailing ":<digits>" segment.
func stripPort(s string) string {
	i := strings.LastIndexByte(s, ':')
	if i == -1 || i == len(s)-1 {
		return s
	}
	for j := i + 1; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return s
		}
	}
	return s[:i]
}

// ParseDomainList decodes a domain-list field of unknown shape into an
// ordered list of strings. Accepted shapes: nil, a list (of strings or
// keyed objects), a JSON-encoded string, a delimiter-separated string, a
// single keyed object, or any scalar. It never fails; the worst case is
// an empty result.
func ParseDomainList(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		var out []string
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, el := range v {
			s := domainFromElement(el)
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		str := strings.TrimSpace(v)
		if str == "" {
			return nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(str), &parsed); err == nil {
			return ParseDomainList(parsed)
		}
		return splitDomains(str)
	case map[string]any:
		if s, ok := keyedDomain(v); ok {
			return []string{s}
		}
		return nil
	default:
		s := strings.TrimSpace(fmt.Sprint(raw))
		if s == "" {
			return nil
		}
		return []string{s}
	}
}

func domainFromElement(el any) string {
	switch v := el.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := keyedDomain(v); ok {
			return s
		}
		return ""
	default:
		return fmt.Sprint(el)
	}
}

// keyedDomain extracts the domain from an object form, trying the keys the
// sources have historically used.
func keyedDomain(m map[string]any) (string, bool) {
	for _, key := range []string{"name", "domain", "host"} {
		if s, ok := m[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

// splitDomains splits a free-form string on runs of commas, semicolons and
// whitespace.
func splitDomains(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Boolify reports whether a dynamically typed flag counts as enabled.
// Only true, 1, "1" and "true" do; everything else is false.
func Boolify(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b == 1
	case int64:
		return b == 1
	case float64:
		return b == 1
	case string:
		return b == "1" || b == "true"
	default:
		return false
	}
}

// CoerceID renders a source-supplied id as a string without regenerating
// it. Integral floats (the JSON number type) render without a fraction.
func CoerceID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
