package datadir

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// placeholderRe matches `{name}` placeholders. Regex quantifiers such as
// `{3}` or `{2,5}` do not start with a letter and are left alone.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Fields lists the placeholder names used in template other than `id`.
func Fields(template string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if m[1] != "id" {
			names = append(names, m[1])
		}
	}
	return names
}

// Expand substitutes `{id}` and the other placeholders of template with
// regex-escaped values. lookup is called for every placeholder except `id`
// and its error aborts the expansion.
func Expand(template, id string, lookup func(name string) (string, error)) (string, error) {
	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		name := strings.Trim(ph, "{}")
		if name == "id" {
			return regexp2.Escape(id)
		}
		if lookup == nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("no catalogue entry to fill `{%s}`", name)
			}
			return ph
		}
		v, err := lookup(name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return ph
		}
		return regexp2.Escape(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
