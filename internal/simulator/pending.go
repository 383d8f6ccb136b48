package simulator

import (
	"context"
)

// Pending is an in-flight simulated call. It resolves exactly once, with
// either a response or the error that abandoned it.
type Pending struct {
	cancel context.CancelFunc
	done   chan struct{}
	resp   *Response
	err    error
}

// Start runs Call in the background. Cancelling ctx or calling Cancel
// abandons the call; its goroutine exits promptly either way.
func (s *Simulator) Start(ctx context.Context, req Request) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		p.resp, p.err = s.Call(ctx, req)
		close(p.done)
	}()
	return p
}

// Done is closed once the call has resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call resolves or ctx is done. Giving up on Wait does
// not cancel the call.
func (p *Pending) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel abandons the call. It is safe to call more than once and after resolution.
func (p *Pending) Cancel() {
	p.cancel()
}
