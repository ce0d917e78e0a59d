package docstore

import (
	"context"
	"errors"
)

// Pending is a remote write that has been issued but may not have finished.
// The local change it belongs to is already applied; callers may Wait for
// the remote side or ignore it.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Completed returns a Pending that has already finished with err.
func Completed(err error) *Pending {
	p := newPending()
	p.resolve(err)
	return p
}

// Done is closed once the write has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the write has finished and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// WaitContext is Wait bounded by ctx. The write itself keeps running if ctx
// expires first.
func (p *Pending) WaitContext(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join returns a Pending that finishes when all of ps have, carrying every
// error they produced. Nil entries are skipped.
func Join(ps ...*Pending) *Pending {
	live := make([]*Pending, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	if len(live) == 1 {
		return live[0]
	}

	joined := newPending()
	go func() {
		var errs []error
		for _, p := range live {
			if err := p.Wait(); err != nil {
				errs = append(errs, err)
			}
		}
		joined.resolve(errors.Join(errs...))
	}()
	return joined
}
