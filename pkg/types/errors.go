package types

import "errors"

// Tree invariant violations reported by WindowTree.Validate.
var (
	ErrTreeKeyMismatch    = errors.New("tab stored under wrong key")
	ErrTreeDanglingParent = errors.New("parent tab not in window")
	ErrTreeDanglingChild  = errors.New("child tab not in window")
	ErrTreeUnlinked       = errors.New("parent and child links disagree")
	ErrTreeCycle          = errors.New("parent chain forms a cycle")
	ErrTreePosition       = errors.New("duplicate tab position")
)

// Persistence lifecycle errors.
var (
	ErrPersist          = errors.New("persist state")
	ErrStoreDetached    = errors.New("store is detached")
	ErrAlreadyAttached  = errors.New("store is already attached")
	ErrUnknownEventKind = errors.New("unknown event type")
)
