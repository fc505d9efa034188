package schema

import "errors"

var (
	// ErrProtocolViolation indicates a runtime message that is neither a
	// notification nor a response carrying a result or an error.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrUnknownResponse indicates a response whose id matches no pending request.
	ErrUnknownResponse = errors.New("unknown response id")
	// ErrRuntimeClosed indicates the runtime process input is no longer writable.
	ErrRuntimeClosed = errors.New("runtime closed")
	// ErrSSHHostRequired indicates the ssh transport was selected without a host.
	ErrSSHHostRequired = errors.New("CODELIA_RUNTIME_SSH_HOST is required when runtime transport is ssh")
	// ErrEmptyRemoteCommand indicates the remote runtime command resolved to nothing.
	ErrEmptyRemoteCommand = errors.New("remote runtime command is empty")
	// ErrInvariant indicates a render-state consistency check failed.
	ErrInvariant = errors.New("render invariant violated")
)
