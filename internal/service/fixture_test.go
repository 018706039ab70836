package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/db"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/payment"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentEvent struct {
	UserID string
	Event  realtime.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingNotifier) Notify(userID string, evt realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{UserID: userID, Event: evt})
}

func (r *recordingNotifier) sent(typ realtime.EventType) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.Event.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// manualScheduler collects delayed steps so tests can fire them one by one.
type manualScheduler struct {
	mu    sync.Mutex
	steps []func()
}

func (m *manualScheduler) after(d time.Duration, f func()) {
	m.mu.Lock()
	m.steps = append(m.steps, f)
	m.mu.Unlock()
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

func (m *manualScheduler) runNext(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	require.NotEmpty(t, m.steps, "no scheduled step")
	f := m.steps[0]
	m.steps = m.steps[1:]
	m.mu.Unlock()
	f()
}

type fixture struct {
	db  *gorm.DB
	now time.Time

	users         repository.UserRepository
	profiles      repository.MakerProfileRepository
	projects      repository.ProjectRepository
	bids          repository.BidRepository
	reviews       repository.ReviewRepository
	earnings      repository.EarningRepository
	payouts       repository.PayoutRepository
	notifRepo     repository.NotificationRepository
	notifier      *recordingNotifier
	notifications NotificationService
	blobs         *storage.MemoryStore
	scheduler     *manualScheduler
	providers     payment.Registry

	bidSvc    *bidService
	payoutSvc *payoutService
	executor  *PayoutExecutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:        conn,
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		users:     repository.NewUserRepository(conn),
		profiles:  repository.NewMakerProfileRepository(conn),
		projects:  repository.NewProjectRepository(conn),
		bids:      repository.NewBidRepository(conn),
		reviews:   repository.NewReviewRepository(conn),
		earnings:  repository.NewEarningRepository(conn),
		payouts:   repository.NewPayoutRepository(conn),
		notifRepo: repository.NewNotificationRepository(conn),
		notifier:  &recordingNotifier{},
		blobs:     storage.NewMemoryStore(),
		scheduler: &manualScheduler{},
		providers: payment.Registry{},
	}
	f.notifications = NewNotificationService(f.notifRepo, f.notifier)
	tx := repository.NewTransactor(conn)
	clock := func() time.Time { return f.now }

	f.bidSvc = NewBidService(BidDeps{
		Tx:            tx,
		Projects:      f.projects,
		Bids:          f.bids,
		Profiles:      f.profiles,
		Users:         f.users,
		Reviews:       f.reviews,
		Earnings:      f.earnings,
		Notifications: f.notifications,
	}).(*bidService)
	f.bidSvc.nowFn = clock

	f.executor = NewPayoutExecutor(f.payouts, f.notifications, f.providers, payment.NewSimulator(3*time.Second))
	f.executor.after = f.scheduler.after
	f.executor.nowFn = clock

	f.payoutSvc = NewPayoutService(PayoutDeps{
		Tx:       tx,
		Profiles: f.profiles,
		Earnings: f.earnings,
		Payouts:  f.payouts,
		Executor: f.executor,
		Currency: "eur",
	}).(*payoutService)
	f.payoutSvc.nowFn = clock
	return f
}

func (f *fixture) client(t *testing.T, uid string) {
	t.Helper()
	require.NoError(t, f.users.Save(context.Background(), &model.User{UID: uid, Role: model.RoleClient, DisplayName: "Client " + uid}))
}

func (f *fixture) maker(t *testing.T, uid string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.users.Save(ctx, &model.User{UID: uid, Role: model.RoleMaker, DisplayName: "Maker " + uid}))
	require.NoError(t, f.profiles.Save(ctx, &model.MakerProfile{
		UID:         uid,
		DisplayName: "Maker " + uid,
		Location:    "Berlin",
		Printers:    "Prusa MK4",
		Materials:   "PLA, PETG",
	}))
}

func (f *fixture) setMethod(t *testing.T, uid string, d model.PayoutDestination) {
	t.Helper()
	_, err := f.payoutSvc.SetPayoutMethod(context.Background(), uid, d)
	require.NoError(t, err)
}

func (f *fixture) project(t *testing.T, owner string) *model.Project {
	t.Helper()
	p := &model.Project{
		OwnerUID: owner,
		Title:    "Gear housing",
		Material: "PETG",
		Quantity: 1,
		Status:   model.ProjectStatusActive,
		Files: []model.ProjectFile{{
			FileName:  "housing.stl",
			ObjectKey: "projects/" + owner + "/housing.stl",
			URL:       "memory://housing.stl",
			SizeBytes: 1024,
		}},
	}
	require.NoError(t, f.projects.Create(context.Background(), p))
	return p
}

func (f *fixture) bid(t *testing.T, maker string, projectID uint64, price string) *model.Bid {
	t.Helper()
	b, err := f.bidSvc.Submit(context.Background(), maker, projectID, BidInput{
		Price:        decimal.RequireFromString(price),
		DeliveryDays: 3,
		Message:      "Can print this week",
	})
	require.NoError(t, err)
	return b
}

// earning appends a ledger entry created at the fixture clock that becomes available after retention.
func (f *fixture) earning(t *testing.T, maker string, sourceID uint64, amount string, retention time.Duration) {
	t.Helper()
	require.NoError(t, f.earnings.Create(context.Background(), &model.Earning{
		MakerUID:      maker,
		SourceType:    model.EarningSourceDesignPurchase,
		SourceID:      sourceID,
		Amount:        decimal.RequireFromString(amount),
		RetentionKind: model.PayoutMethodStripe,
		AvailableDate: f.now.Add(retention),
		CreatedAt:     f.now,
	}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
