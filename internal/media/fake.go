package media

import "context"

// FakeAcquirer is an Acquirer for local runs and tests. When Deny is set it
// refuses every acquisition with ErrPermissionDenied.
type FakeAcquirer struct {
	Deny bool

	// ReleaseErr, when set, is returned by Release of every granted stream.
	ReleaseErr error

	Acquired int

	// LastStream is the most recently granted stream.
	LastStream *FakeStream
}

func (a *FakeAcquirer) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Deny {
		return nil, ErrPermissionDenied
	}
	a.Acquired++
	a.LastStream = &FakeStream{releaseErr: a.ReleaseErr}
	return a.LastStream, nil
}

// FakeStream records whether it has been released.
type FakeStream struct {
	Released   bool
	releaseErr error
}

func (s *FakeStream) Release() error {
	s.Released = true
	return s.releaseErr
}
