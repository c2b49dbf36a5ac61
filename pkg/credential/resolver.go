package credential

// Source records where a resolved credential came from.
type Source string

const (
	SourceHeader  Source = "header"
	SourceSession Source = "session"
	SourceDefault Source = "default"
)

// Resolved is a canonical credential together with its origin.
type Resolved struct {
	Value  string
	Source Source
}

// Resolver applies the precedence header > session > default. Default is the
// operator-configured fallback key and may be empty.
type Resolver struct {
	Default string
}

// Resolve picks the first candidate that normalizes to a usable credential.
// The boolean is false when no source yields one.
func (r Resolver) Resolve(header, session string) (Resolved, bool) {
	candidates := []struct {
		raw    string
		source Source
	}{
		{header, SourceHeader},
		{session, SourceSession},
		{r.Default, SourceDefault},
	}
	for _, c := range candidates {
		if value, ok := Normalize(c.raw); ok {
			return Resolved{Value: value, Source: c.source}, true
		}
	}
	return Resolved{}, false
}
