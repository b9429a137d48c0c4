package diagnostics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/diagnostics"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	ch := diagnostics.New()
	inbox, unsubscribe := ch.Subscribe(4)
	defer unsubscribe()

	ch.Publish(diagnostics.Event{Severity: diagnostics.SeverityError, Kind: diagnostics.KindReorg, Message: "reorg"})

	select {
	case ev := <-inbox:
		require.Equal(t, diagnostics.KindReorg, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	digest := ch.Digest()
	require.Equal(t, uint64(1), digest.Error)
	require.Equal(t, uint64(1), digest.Total())
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	ch := diagnostics.New()
	inbox, unsubscribe := ch.Subscribe(1)
	defer unsubscribe()

	ch.Publish(diagnostics.Event{Severity: diagnostics.SeverityWarning})
	done := make(chan struct{})
	go func() {
		ch.Publish(diagnostics.Event{Severity: diagnostics.SeverityWarning})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber inbox")
	}

	require.Equal(t, uint64(2), ch.Digest().Warning)
	<-inbox
}

func TestUnsubscribeClosesInbox(t *testing.T) {
	ch := diagnostics.New()
	inbox, unsubscribe := ch.Subscribe(1)
	unsubscribe()

	_, ok := <-inbox
	require.False(t, ok)
}
