// Package template implements the literal `${name}` parameter substitution
// applied to a raw pipeline document before it is parsed, grounded on the
// original aqueducts-core templating.rs substitute_params pass.
package template

import (
	"regexp"
	"sort"

	"github.com/aqueducts-go/aqueducts/internal/aqerr"
)

// placeholderPattern matches `${key}` where key is a valid identifier.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render replaces every `${key}` occurrence in text with params[key]
// using literal substitution (no escaping), then fails if any `${...}`
// placeholder remains.
func Render(text string, params map[string]string) (string, error) {
	rendered := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := params[key]; ok {
			return v
		}
		return match
	})

	remaining := placeholderPattern.FindAllStringSubmatch(rendered, -1)
	if len(remaining) == 0 {
		return rendered, nil
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, m := range remaining {
		key := m[1]
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return "", aqerr.NewTemplateError(keys)
}
