// Package resources holds the interner, the post-load registry of all
// definitions, tag resolution and translations. Everything here is
// read-mostly: populated during pack load, then shared by reference.
package resources

import (
	"fmt"
	"strings"
	"sync"

	"automancy.dev/internal/data"
)

// DefaultNamespace is used when parsing an id with no explicit namespace.
const DefaultNamespace = "automancy"

// Interner maps "namespace:name" strings to dense Id handles. It is
// append-only; handles stay valid until the interner itself is replaced
// by a resource reload.
type Interner struct {
	mu    sync.RWMutex
	byStr map[string]data.Id
	strs  []string
}

func NewInterner() *Interner {
	return &Interner{byStr: map[string]data.Id{}}
}

// Intern returns the handle for s, issuing a new one on first sight.
// Handles start at 1; the zero Id is reserved for "unset".
func (in *Interner) Intern(s string) data.Id {
	in.mu.RLock()
	id, ok := in.byStr[s]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byStr[s]; ok {
		return id
	}
	in.strs = append(in.strs, s)
	id = data.Id(len(in.strs))
	in.byStr[s] = id
	return id
}

// Resolve returns the string form of an issued handle. Resolving a handle
// the interner never issued is a programming error.
func (in *Interner) Resolve(id data.Id) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	i := int(id) - 1
	if i < 0 || i >= len(in.strs) {
		panic(fmt.Sprintf("resources: resolve of unissued id %d", id))
	}
	return in.strs[i]
}

// Len returns the number of issued handles.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.strs)
}

// ParseId parses "ns:name", or "name" with the given default namespace.
// An empty namespace or name is an error, as is a bare name with no
// default namespace.
func ParseId(text, defaultNs string) (string, error) {
	switch strings.Count(text, ":") {
	case 0:
		if text == "" {
			return "", fmt.Errorf("empty id")
		}
		if defaultNs == "" {
			return "", fmt.Errorf("id %q has no namespace and no default is set", text)
		}
		return defaultNs + ":" + text, nil
	case 1:
		ns, name, _ := strings.Cut(text, ":")
		if ns == "" {
			return "", fmt.Errorf("id %q has an empty namespace", text)
		}
		if name == "" {
			return "", fmt.Errorf("id %q has an empty name", text)
		}
		return text, nil
	default:
		return "", fmt.Errorf("id %q has more than one ':'", text)
	}
}

// Parse interns the parsed form of text.
func (in *Interner) Parse(text, defaultNs string) (data.Id, error) {
	s, err := ParseId(text, defaultNs)
	if err != nil {
		return data.NoId, err
	}
	return in.Intern(s), nil
}
