// Package media abstracts acquisition of the camera/microphone stream a
// proctored session requires. Acquisition is the single asynchronous step of
// joining a contest; the stream is exclusively owned by the session that
// acquired it and must be released on every exit path.
package media

import (
	"context"
	"fmt"
)

// ErrPermissionDenied is returned when the host environment refuses to grant
// camera and microphone access.
var ErrPermissionDenied = fmt.Errorf("camera/microphone permission denied")

// Stream is an acquired camera+microphone stream.
type Stream interface {
	// Release stops the stream and frees the device.
	Release() error
}

// Acquirer grants access to a camera+microphone stream.
type Acquirer interface {
	Acquire(ctx context.Context) (Stream, error)
}

// ClientGrant is an Acquirer backed by a permission decision the client
// environment already made before sending its join command.
type ClientGrant struct {
	Granted bool
}

func (a ClientGrant) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !a.Granted {
		return nil, ErrPermissionDenied
	}
	return noopStream{}, nil
}

type noopStream struct{}

func (noopStream) Release() error { return nil }
