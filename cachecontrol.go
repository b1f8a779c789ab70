package memocache

import "strings"

// cacheControl is a parsed Cache-Control header: directive name (lowered)
// to optional value.
type cacheControl map[string]string

func parseCacheControl(header string) cacheControl {
	cc := make(cacheControl)
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}
		name, value, _ := strings.Cut(directive, "=")
		cc[strings.ToLower(name)] = strings.Trim(value, `"`)
	}
	return cc
}

func (cc cacheControl) has(directive string) bool {
	_, ok := cc[directive]
	return ok
}
