package cli

import (
	"context"
	"sync"
)

// background tracks the relay and consumer goroutines. stop cancels them and
// blocks until every one has returned, so the broker connection and the pool
// can be closed afterwards.
type background struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newBackground(parent context.Context) *background {
	ctx, cancel := context.WithCancel(parent)
	return &background{ctx: ctx, cancel: cancel}
}

func (b *background) run(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

// await tracks a goroutine started elsewhere that closes done when it exits.
func (b *background) await(done <-chan struct{}) {
	b.run(func(context.Context) { <-done })
}

func (b *background) stop() {
	b.cancel()
	b.wg.Wait()
}
