package resources

import (
	"testing"

	"automancy.dev/internal/data"
)

func TestInternIsStable(t *testing.T) {
	in := NewInterner()
	a := in.Intern("ns:a")
	b := in.Intern("ns:b")
	if a == b {
		t.Fatalf("distinct strings share a handle")
	}
	if got := in.Intern("ns:a"); got != a {
		t.Fatalf("re-intern changed the handle: %d vs %d", got, a)
	}
	if !a.Valid() || !b.Valid() {
		t.Fatalf("issued handles must be valid")
	}
	if in.Len() != 2 {
		t.Fatalf("len: want 2, got %d", in.Len())
	}
}

func TestResolveRoundTrip(t *testing.T) {
	in := NewInterner()
	id := in.Intern("ns:thing")
	if got := in.Resolve(id); got != "ns:thing" {
		t.Fatalf("resolve: got %q", got)
	}
}

func TestResolveUnissuedPanics(t *testing.T) {
	in := NewInterner()
	defer func() {
		if recover() == nil {
			t.Fatalf("resolve of unissued handle did not panic")
		}
	}()
	in.Resolve(data.Id(99))
}

func TestParseId(t *testing.T) {
	cases := []struct {
		text, ns string
		want     string
		bad      bool
	}{
		{"ns:name", "dflt", "ns:name", false},
		{"name", "dflt", "dflt:name", false},
		{"name", "", "", true},
		{"", "dflt", "", true},
		{":name", "dflt", "", true},
		{"ns:", "dflt", "", true},
		{"a:b:c", "dflt", "", true},
	}
	for _, tc := range cases {
		got, err := ParseId(tc.text, tc.ns)
		if tc.bad {
			if err == nil {
				t.Fatalf("ParseId(%q, %q): want error, got %q", tc.text, tc.ns, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseId(%q, %q): want %q, got %q (%v)", tc.text, tc.ns, tc.want, got, err)
		}
	}
}

func TestParseInternsCanonicalForm(t *testing.T) {
	in := NewInterner()
	a, err := in.Parse("thing", "ns")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := in.Parse("ns:thing", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a != b {
		t.Fatalf("bare and qualified forms got different handles")
	}
}
