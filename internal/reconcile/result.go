package reconcile

import "github.com/lorea/bootstrap/internal/manifest"

// Result is the outcome of one package operation.
type Result struct {
	Key    manifest.Key
	Action Action
	Before manifest.State
	After  manifest.State
	Err    error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Summary collects the results of a full pass.
type Summary struct {
	Results []Result
	// Linked lists the plugins linked by the relink pass.
	Linked []string
	// RelinkErr is set when the relink pass could not complete.
	RelinkErr error
	// Interrupted is set when the context was cancelled mid-pass.
	Interrupted bool
}

// Failed returns the results that carry an error.
func (s *Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many successful results took action a.
func (s *Summary) Count(a Action) int {
	n := 0
	for _, r := range s.Results {
		if r.OK() && r.Action == a {
			n++
		}
	}
	return n
}
