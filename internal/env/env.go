// Package env composes the environment handed to the supervised process:
// the launcher's own environment as the base, with configured overrides
// applied on top.
package env

import (
	"os"
	"sort"
	"strings"
)

// Merge returns the launcher environment with overrides applied last, in
// "K=V" form. Later duplicate keys within overrides win, and overrides win
// over the OS environment. Malformed entries without '=' are skipped. The
// result is sorted for deterministic child environments.
func Merge(overrides []string) []string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := split(kv); ok {
			m[k] = v
		}
	}
	for _, kv := range overrides {
		if k, v, ok := split(kv); ok {
			m[k] = v
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func split(kv string) (string, string, bool) {
	i := strings.IndexByte(kv, '=')
	if i <= 0 {
		return "", "", false
	}
	return kv[:i], kv[i+1:], true
}
