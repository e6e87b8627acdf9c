package mtrie

import "errors"

// Sentinel errors returned by the core. Callers compare with errors.Is.
var (
	// ErrArenaExhausted is returned when a node pool has no free node left.
	// The attempted insert is left uncommitted.
	ErrArenaExhausted = errors.New("mtrie: node arena exhausted")

	// ErrRuleTableFull is returned when the shadow rule table has no free
	// slot. rule_add becomes a no-op when this occurs.
	ErrRuleTableFull = errors.New("mtrie: shadow rule table full")

	// ErrInitFailure is returned by NewTable when a Table's backing named
	// region could not be allocated.
	ErrInitFailure = errors.New("mtrie: arena initialization failed")

	// ErrTableNotFound is returned by LookupTable/FreeTable for a name
	// that was never created, or was already freed.
	ErrTableNotFound = errors.New("mtrie: table not found")

	// ErrNotInitialized is returned by NewTable when called before
	// InitGlobal, and by TermGlobal when called without a matching
	// InitGlobal.
	ErrNotInitialized = errors.New("mtrie: not initialized")

	// ErrAlreadyInitialized is returned by InitGlobal when called a
	// second time without an intervening TermGlobal.
	ErrAlreadyInitialized = errors.New("mtrie: already initialized")
)
