package service

import (
	"context"
	"testing"

	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPersistsBeforePush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.notifications.Notify(ctx, "maker-1", Note{
		Type:   realtime.EventBidAccepted,
		Title:  "Your bid was accepted",
		BidID:  uint64Ptr(7),
		Fields: map[string]interface{}{"price": "12.00"},
	})

	sent := f.notifier.sent(realtime.EventBidAccepted)
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(7), sent[0].Event.Fields["bidId"])
	assert.Equal(t, "12.00", sent[0].Event.Fields["price"])

	list, unread, err := f.notifications.List(ctx, "maker-1", false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, string(realtime.EventBidAccepted), list[0].Type)
	require.NotNil(t, list[0].BidID)
	assert.Equal(t, uint64(7), *list[0].BidID)

	require.NoError(t, f.notifications.MarkAllRead(ctx, "maker-1"))
	_, unread, err = f.notifications.List(ctx, "maker-1", true, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

// A user without a live socket misses the push but finds the event by polling.
func TestDroppedPushRecoveredByPolling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hub := realtime.NewHub()
	f.notifications = NewNotificationService(f.notifRepo, hub)
	f.bidSvc.notify = f.notifications

	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "15")
	assert.False(t, hub.Connected("client-1"))

	list, _, err := f.notifications.List(ctx, "client-1", true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, string(realtime.EventNewBid), list[0].Type)
	require.NotNil(t, list[0].BidID)
	assert.Equal(t, b.ID, *list[0].BidID)

	bids, err := f.bidSvc.ListForProject(ctx, "client-1", p.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, b.ID, bids[0].ID)
}

func TestNotifyIgnoresEmptyTarget(t *testing.T) {
	f := newFixture(t)
	f.notifications.Notify(context.Background(), "", Note{Type: realtime.EventNewBid})
	assert.Empty(t, f.notifier.sent(realtime.EventNewBid))
}
