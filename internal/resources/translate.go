package resources

import (
	"fmt"
	"strings"

	"automancy.dev/internal/data"
)

// Translate holds per-id display names plus keyed UI and error strings.
type Translate struct {
	Names   map[data.Id]string
	Strings map[data.Id]string
}

func newTranslate() Translate {
	return Translate{
		Names:   map[data.Id]string{},
		Strings: map[data.Id]string{},
	}
}

// Name returns the translated display name for an id, falling back to the
// raw id string so untranslated content is still identifiable.
func (r *Registry) Name(id data.Id) string {
	if s, ok := r.translate.Names[id]; ok {
		return s
	}
	return r.Interner.Resolve(id)
}

// String returns the keyed UI/error string for an id.
func (r *Registry) String(id data.Id) (string, bool) {
	s, ok := r.translate.Strings[id]
	return s, ok
}

// ErrorText formats a popped error for display through the pack's
// error_popup template. Returns false when the active packs carry no
// template or the template does not match the engine's keys.
func (r *Registry) ErrorText(code, message string) (string, bool) {
	id := r.Interner.Intern(DefaultNamespace + ":error_popup")
	tpl, ok := r.translate.Strings[id]
	if !ok {
		return "", false
	}
	s, err := FormatStr(tpl, map[string]string{"code": code, "message": message})
	if err != nil {
		return "", false
	}
	return s, true
}

// FormatStr interpolates {key} placeholders from ctx. An unknown key or a
// malformed placeholder is a hard error; translation files must match
// the engine's expectations exactly.
func FormatStr(template string, ctx map[string]string) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:open])
		rest = rest[open+1:]
		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return "", fmt.Errorf("format: unterminated '{' in %q", template)
		}
		key := rest[:close]
		val, ok := ctx[key]
		if !ok {
			return "", fmt.Errorf("format: unknown key %q in %q", key, template)
		}
		b.WriteString(val)
		rest = rest[close+1:]
	}
}
