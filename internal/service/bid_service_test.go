package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBidThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")

	b := f.bid(t, "maker-1", p.ID, "50")
	assert.Equal(t, model.BidStatusPending, b.Status)

	events := f.notifier.sent(realtime.EventNewBid)
	require.Len(t, events, 1)
	assert.Equal(t, "client-1", events[0].UserID)
	assert.Equal(t, b.ID, events[0].Event.Fields["bidId"])

	_, err := f.bidSvc.Submit(ctx, "maker-1", p.ID, BidInput{Price: dec("45"), DeliveryDays: 2})
	require.ErrorIs(t, err, ErrDuplicateBid)
	assert.Contains(t, err.Error(), "already have a bid")
}

func TestSubmitBidGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	require.NoError(t, f.users.Save(ctx, &model.User{UID: "maker-2", Role: model.RoleMaker}))
	require.NoError(t, f.profiles.Save(ctx, &model.MakerProfile{UID: "maker-2", DisplayName: "Half done"}))

	open := f.project(t, "client-1")
	completed := f.project(t, "client-1")
	_, err := f.projects.CompleteIfActive(ctx, completed.ID)
	require.NoError(t, err)
	deleted := f.project(t, "client-1")
	require.NoError(t, f.projects.SoftDelete(ctx, deleted.ID))

	tests := []struct {
		name      string
		maker     string
		projectID uint64
		in        BidInput
		wantErr   error
		wantField string
	}{
		{"price below minimum", "maker-1", open.ID, BidInput{Price: dec("0.49"), DeliveryDays: 3}, nil, "price"},
		{"price with cents fraction", "maker-1", open.ID, BidInput{Price: dec("1.005"), DeliveryDays: 3}, nil, "price"},
		{"delivery days zero", "maker-1", open.ID, BidInput{Price: dec("5"), DeliveryDays: 0}, nil, "deliveryDays"},
		{"incomplete profile", "maker-2", open.ID, BidInput{Price: dec("5"), DeliveryDays: 3}, ErrProfileIncomplete, ""},
		{"no profile", "nobody", open.ID, BidInput{Price: dec("5"), DeliveryDays: 3}, ErrProfileIncomplete, ""},
		{"completed project", "maker-1", completed.ID, BidInput{Price: dec("5"), DeliveryDays: 3}, ErrProjectClosed, ""},
		{"deleted project", "maker-1", deleted.ID, BidInput{Price: dec("5"), DeliveryDays: 3}, ErrProjectDeleted, ""},
		{"missing project", "maker-1", 9999, BidInput{Price: dec("5"), DeliveryDays: 3}, ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bidSvc.Submit(ctx, tt.maker, tt.projectID, tt.in)
			require.Error(t, err)
			if tt.wantField != "" {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve), "want validation error, got %v", err)
				assert.Equal(t, tt.wantField, ve.Field)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("minimum price accepted", func(t *testing.T) {
		b := f.bid(t, "maker-1", open.ID, "0.50")
		assert.True(t, b.Price.Equal(MinimumBidPrice))
	})
}

func TestOwnerCannotBidOnOwnProject(t *testing.T) {
	f := newFixture(t)
	f.maker(t, "maker-1")
	p := f.project(t, "maker-1")
	_, err := f.bidSvc.Submit(context.Background(), "maker-1", p.ID, BidInput{Price: dec("5"), DeliveryDays: 1})
	require.ErrorIs(t, err, ErrOwnProject)
}

func TestRebidAfterRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")

	first := f.bid(t, "maker-1", p.ID, "30")
	_, err := f.bidSvc.Reject(ctx, "client-1", first.ID)
	require.NoError(t, err)

	second := f.bid(t, "maker-1", p.ID, "25")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.BidStatusPending, second.Status)

	_, err = f.bidSvc.Submit(ctx, "maker-1", p.ID, BidInput{Price: dec("20"), DeliveryDays: 2})
	require.ErrorIs(t, err, ErrDuplicateBid)

	_, err = f.bidSvc.Accept(ctx, "client-1", second.ID)
	require.NoError(t, err)
	_, err = f.bidSvc.Submit(ctx, "maker-1", p.ID, BidInput{Price: dec("20"), DeliveryDays: 2})
	require.Error(t, err)
}

func TestAcceptRejectsSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	for _, m := range []string{"maker-1", "maker-2", "maker-3"} {
		f.maker(t, m)
	}
	p := f.project(t, "client-1")
	b1 := f.bid(t, "maker-1", p.ID, "50")
	b2 := f.bid(t, "maker-2", p.ID, "55")
	b3 := f.bid(t, "maker-3", p.ID, "60")
	f.notifier.reset()

	accepted, err := f.bidSvc.Accept(ctx, "client-1", b1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BidStatusAccepted, accepted.Status)

	project, err := f.projects.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusCompleted, project.Status)

	for _, id := range []uint64{b2.ID, b3.ID} {
		b, err := f.bids.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.BidStatusRejected, b.Status)
	}

	acc := f.notifier.sent(realtime.EventBidAccepted)
	require.Len(t, acc, 1)
	assert.Equal(t, "maker-1", acc[0].UserID)
	rej := f.notifier.sent(realtime.EventBidRejected)
	require.Len(t, rej, 2)
	assert.ElementsMatch(t, []string{"maker-2", "maker-3"}, []string{rej[0].UserID, rej[1].UserID})

	_, err = f.bidSvc.Accept(ctx, "client-1", b2.ID)
	require.ErrorIs(t, err, ErrProjectClosed)
}

func TestAcceptRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.client(t, "client-2")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "10")

	_, err := f.bidSvc.Accept(ctx, "client-2", b.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.bidSvc.Reject(ctx, "client-2", b.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.bidSvc.Accept(ctx, "client-1", 424242)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.projects.SoftDelete(ctx, p.ID))
	_, err = f.bidSvc.Accept(ctx, "client-1", b.ID)
	require.ErrorIs(t, err, ErrProjectDeleted)
}

func TestConcurrentAcceptHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	p := f.project(t, "client-1")
	var ids []uint64
	for _, m := range []string{"maker-1", "maker-2", "maker-3", "maker-4", "maker-5"} {
		f.maker(t, m)
		ids = append(ids, f.bid(t, m, p.ID, "20").ID)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if _, err := f.bidSvc.Accept(ctx, "client-1", id); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	list, err := f.bids.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	accepted := 0
	for _, b := range list {
		switch b.Status {
		case model.BidStatusAccepted:
			accepted++
		case model.BidStatusPending:
			t.Fatalf("bid %d left pending after acceptance", b.ID)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestEditAndWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	f.maker(t, "maker-2")
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "40")

	price := dec("35.50")
	days := 5
	edited, err := f.bidSvc.Edit(ctx, "maker-1", b.ID, repository.BidUpdate{Price: &price, DeliveryDays: &days})
	require.NoError(t, err)
	assert.True(t, edited.Price.Equal(price))
	assert.Equal(t, 5, edited.DeliveryDays)

	_, err = f.bidSvc.Edit(ctx, "maker-2", b.ID, repository.BidUpdate{Price: &price})
	require.ErrorIs(t, err, ErrForbidden)

	f.notifier.reset()
	require.NoError(t, f.bidSvc.Withdraw(ctx, "maker-1", b.ID))
	_, err = f.bids.FindByID(ctx, b.ID)
	require.Error(t, err)
	deleted := f.notifier.sent(realtime.EventBidDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, "client-1", deleted[0].UserID)

	other := f.bid(t, "maker-2", p.ID, "45")
	_, err = f.bidSvc.Accept(ctx, "client-1", other.ID)
	require.NoError(t, err)
	_, err = f.bidSvc.Edit(ctx, "maker-2", other.ID, repository.BidUpdate{Price: &price})
	require.ErrorIs(t, err, ErrBidNotPending)
	require.ErrorIs(t, f.bidSvc.Withdraw(ctx, "maker-2", other.ID), ErrBidNotPending)
}

func TestEditOnDeletedProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "40")
	require.NoError(t, f.projects.SoftDelete(ctx, p.ID))

	msg := "updated"
	_, err := f.bidSvc.Edit(ctx, "maker-1", b.ID, repository.BidUpdate{Message: &msg})
	require.ErrorIs(t, err, ErrProjectDeleted)
	require.ErrorIs(t, f.bidSvc.Withdraw(ctx, "maker-1", b.ID), ErrProjectDeleted)
}

func TestConfirmDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	f.maker(t, "maker-2")
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "80")

	_, err := f.bidSvc.ConfirmDelivery(ctx, "client-1", b.ID, 5, "")
	require.ErrorIs(t, err, ErrBidNotAccepted)

	_, err = f.bidSvc.Accept(ctx, "client-1", b.ID)
	require.NoError(t, err)

	for _, r := range []float64{0, 0.25, 4.3, 5.5} {
		_, err = f.bidSvc.ConfirmDelivery(ctx, "client-1", b.ID, r, "")
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "rating %v", r)
	}
	_, err = f.bidSvc.ConfirmDelivery(ctx, "client-2", b.ID, 4.5, "")
	require.ErrorIs(t, err, ErrForbidden)

	f.notifier.reset()
	confirmed, err := f.bidSvc.ConfirmDelivery(ctx, "client-1", b.ID, 4.5, "Great print")
	require.NoError(t, err)
	require.NotNil(t, confirmed.DeliveryConfirmedAt)

	earnings, err := f.earnings.ListByMaker(ctx, "maker-1")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	assert.True(t, earnings[0].Amount.Equal(dec("80")))
	assert.Equal(t, model.EarningSourceBid, earnings[0].SourceType)
	assert.Equal(t, model.PayoutMethodBank, earnings[0].RetentionKind)
	assert.True(t, earnings[0].AvailableDate.Equal(f.now.Add(15*24*time.Hour)))

	exists, err := f.reviews.Exists(ctx, b.ID, model.ReviewClientToMaker)
	require.NoError(t, err)
	assert.True(t, exists)

	ev := f.notifier.sent(realtime.EventDeliveryConfirmed)
	require.Len(t, ev, 1)
	assert.Equal(t, "maker-1", ev[0].UserID)
	assert.Equal(t, "Client client-1", ev[0].Event.Fields["clientName"])
	assert.Equal(t, "Gear housing", ev[0].Event.Fields["projectTitle"])

	_, err = f.bidSvc.ConfirmDelivery(ctx, "client-1", b.ID, 4, "")
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
	earnings, err = f.earnings.ListByMaker(ctx, "maker-1")
	require.NoError(t, err)
	assert.Len(t, earnings, 1)
}

func TestConfirmDeliveryRetentionFollowsPayoutMethod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	f.setMethod(t, "maker-1", model.StripeDestination{ConnectAccountID: "acct_1234567"})
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "30")
	_, err := f.bidSvc.Accept(ctx, "client-1", b.ID)
	require.NoError(t, err)
	_, err = f.bidSvc.ConfirmDelivery(ctx, "client-1", b.ID, 5, "")
	require.NoError(t, err)

	earnings, err := f.earnings.ListByMaker(ctx, "maker-1")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	assert.Equal(t, model.PayoutMethodStripe, earnings[0].RetentionKind)
	assert.True(t, earnings[0].AvailableDate.Equal(f.now.Add(7*24*time.Hour)))
}

func TestRateClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	p := f.project(t, "client-1")
	b := f.bid(t, "maker-1", p.ID, "30")
	_, err := f.bidSvc.Accept(ctx, "client-1", b.ID)
	require.NoError(t, err)

	_, err = f.bidSvc.RateClient(ctx, "maker-1", b.ID, 5, "")
	require.ErrorIs(t, err, ErrDeliveryNotConfirmed)

	_, err = f.bidSvc.ConfirmDelivery(ctx, "client-1", b.ID, 5, "")
	require.NoError(t, err)

	r, err := f.bidSvc.RateClient(ctx, "maker-1", b.ID, 4.5, "Clear files")
	require.NoError(t, err)
	assert.Equal(t, "client-1", r.RevieweeUID)
	assert.Equal(t, model.ReviewMakerToClient, r.Direction)

	_, err = f.bidSvc.RateClient(ctx, "maker-1", b.ID, 4, "")
	require.ErrorIs(t, err, ErrAlreadyRated)
}

func TestListForProjectVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client(t, "client-1")
	f.maker(t, "maker-1")
	f.maker(t, "maker-2")
	p := f.project(t, "client-1")
	f.bid(t, "maker-1", p.ID, "30")
	f.bid(t, "maker-2", p.ID, "35")

	all, err := f.bidSvc.ListForProject(ctx, "client-1", p.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.bidSvc.ListForProject(ctx, "maker-2", p.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "maker-2", own[0].MakerUID)

	require.ErrorIs(t, f.bidSvc.MarkProjectBidsRead(ctx, "maker-1", p.ID), ErrForbidden)
	require.NoError(t, f.bidSvc.MarkProjectBidsRead(ctx, "client-1", p.ID))
	all, err = f.bids.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	for _, b := range all {
		assert.True(t, b.IsRead)
	}
}
