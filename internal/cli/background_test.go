package cli

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundStopWaitsForWorkers(t *testing.T) {
	bg := newBackground(context.Background())

	var brokerClosed, sawClosedBroker, finished atomic.Bool
	bg.run(func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		sawClosedBroker.Store(brokerClosed.Load())
		finished.Store(true)
	})

	consumerDone := make(chan struct{})
	bg.await(consumerDone)
	go func() {
		<-bg.ctx.Done()
		time.Sleep(20 * time.Millisecond)
		close(consumerDone)
	}()

	bg.stop()
	brokerClosed.Store(true)

	assert.True(t, finished.Load())
	assert.False(t, sawClosedBroker.Load(), "worker must finish before the broker closes")

	select {
	case <-consumerDone:
	default:
		t.Fatal("stop returned before the consumer exited")
	}
}

func TestBackgroundStopFollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	bg := newBackground(parent)

	exited := make(chan struct{})
	bg.run(func(ctx context.Context) {
		<-ctx.Done()
		close(exited)
	})

	cancel()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("worker ignored parent cancellation")
	}
	bg.stop()
	bg.stop()
}
