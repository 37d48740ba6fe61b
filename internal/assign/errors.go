package assign

import "errors"

var (
	// ErrTemplateNotFound covers missing templates and templates that are no
	// longer active or visible to the caller.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrChildNotFound is returned when the acting child does not exist.
	ErrChildNotFound = errors.New("child not found")

	// ErrNotSingle is returned when a claim operation targets a recurring
	// template; those are generated on the calendar, never claimed.
	ErrNotSingle = errors.New("template is not a single-claim task")

	// ErrNotCandidate rejects accept/decline from a child outside the
	// template's candidate pool. A permission failure, checked before any
	// lock is taken.
	ErrNotCandidate = errors.New("child is not a candidate for this task")

	// ErrAlreadyClaimed means another candidate's accept won. Distinguishable
	// from ErrNotCandidate so callers can tell "someone else got it" from
	// "you aren't eligible".
	ErrAlreadyClaimed = errors.New("task already claimed")
)
