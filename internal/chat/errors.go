package chat

import "errors"

var (
	// ErrNoSession means a reply was attempted with no live session; the
	// caller has to start one first.
	ErrNoSession = errors.New("chat session not found, start one first")

	// ErrWrongKind means the stored session belongs to the other chat
	// variant. Callers should stop it and start a fresh one instead of
	// coercing.
	ErrWrongKind = errors.New("chat session kind mismatch")

	// ErrSessionAbsent is returned by Stop when there was nothing to
	// delete. Most call sites treat it as already-done.
	ErrSessionAbsent = errors.New("chat session already ended")

	// ErrUnknownTool means the model requested a tool that was never
	// declared to it.
	ErrUnknownTool = errors.New("model requested an unknown tool")
)
