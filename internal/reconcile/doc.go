// Package reconcile drives every registered package toward the state
// its manifest record asks for.
//
// Each package is handled by a small state machine:
//
//	absent, no directory   install
//	absent, directory      update (an earlier fetch already happened)
//	installed              update
//	skip                   nothing
//	remove                 uninstall, then absent
//	anything else          reported, left unchanged
//
// Operations on one package never abort the pass over the others. After
// the pass, plugin directories are linked into the core module
// directory. The manifest is mutated in memory only; persisting it is
// the caller's job.
package reconcile
