package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationBetweenOwnerAndBidder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewConversationService(repository.NewConversationRepository(f.db), f.projects, f.bids, f.notifications)
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")

	_, err := svc.Open(ctx, "client-1", p.ID, "maker-1")
	require.ErrorIs(t, err, ErrNotFound, "owner cannot reach a maker who never bid")

	f.bid(t, "maker-1", p.ID, "15.00")
	f.notifier.reset()

	cv, err := svc.Open(ctx, "client-1", p.ID, "maker-1")
	require.NoError(t, err)
	again, err := svc.Open(ctx, "maker-1", p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, cv.ID, again.ID)
	assert.Equal(t, "client-1", cv.ClientUID)
	assert.Equal(t, "maker-1", cv.MakerUID)

	_, err = svc.PostMessage(ctx, cv.ID, "maker-1", "   ")
	require.Error(t, err)
	_, err = svc.PostMessage(ctx, cv.ID, "intruder", "hi")
	require.ErrorIs(t, err, ErrForbidden)

	msg, err := svc.PostMessage(ctx, cv.ID, "maker-1", "Which infill do you need?")
	require.NoError(t, err)
	sent := f.notifier.sent(realtime.EventNewMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, "client-1", sent[0].UserID)
	assert.Equal(t, cv.ID, sent[0].Event.Fields["conversationId"])
	assert.Equal(t, msg.ID, sent[0].Event.Fields["messageId"])

	views, err := svc.ListByUser(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].HasUnread)

	msgs, err := svc.ListMessages(ctx, cv.ID, "client-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Which infill do you need?", msgs[0].Body)

	views, err = svc.ListByUser(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, views[0].HasUnread)

	makerViews, err := svc.ListByUser(ctx, "maker-1")
	require.NoError(t, err)
	require.Len(t, makerViews, 1)
	assert.False(t, makerViews[0].HasUnread, "own messages are never unread")
}

func TestMessagePreviewIsTruncated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewConversationService(repository.NewConversationRepository(f.db), f.projects, f.bids, f.notifications)
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")
	f.bid(t, "maker-1", p.ID, "15.00")

	cv, err := svc.Open(ctx, "maker-1", p.ID, "")
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, cv.ID, "maker-1", strings.Repeat("a", 200))
	require.NoError(t, err)

	list, _, err := f.notifications.List(ctx, "client-1", false, 10)
	require.NoError(t, err)
	var found bool
	for _, n := range list {
		if n.Type == string(realtime.EventNewMessage) {
			found = true
			assert.Equal(t, 81, len([]rune(n.Body)))
		}
	}
	assert.True(t, found)
}
