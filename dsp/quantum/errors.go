package quantum

import "errors"

var (
	// ErrNotConfigured is returned for parameter changes before a session
	// has been initialized. The event has no effect.
	ErrNotConfigured = errors.New("quantum: not configured")
	// ErrNoEngine is returned by Initialize before any ModuleReady.
	ErrNoEngine = errors.New("quantum: no engine module loaded")
	// ErrMailboxFull is returned by Controller.Send when the callback has
	// not consumed earlier events yet.
	ErrMailboxFull = errors.New("quantum: control mailbox full")
	// ErrControllerAttached is returned by OnControlEvent once a Controller
	// owns the processor.
	ErrControllerAttached = errors.New("quantum: controller attached, use Controller.Send")
)
