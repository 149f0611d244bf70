package realtime

import (
	"errors"
	"fmt"
)

// ErrAlreadyConnected is returned by Start while a session is in progress.
var ErrAlreadyConnected = errors.New("realtime: session already connecting or connected")

// MediaAccessError means the local audio input could not be acquired.
type MediaAccessError struct {
	Err error
}

func (e *MediaAccessError) Error() string {
	return fmt.Sprintf("realtime: media access: %v", e.Err)
}

func (e *MediaAccessError) Unwrap() error { return e.Err }

// SessionCreationError means the token service did not return a credential.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("realtime: session creation: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// SignalingError means the peer connection could not be negotiated.
type SignalingError struct {
	Err error
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("realtime: signaling: %v", e.Err)
}

func (e *SignalingError) Unwrap() error { return e.Err }
