package service

import (
	"context"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"go.uber.org/zap"
)

// Note is one user-facing event. It is stored in the inbox and pushed in realtime.
type Note struct {
	Type           realtime.EventType
	Title          string
	Body           string
	ProjectID      *uint64
	BidID          *uint64
	PayoutID       *uint64
	ConversationID *uint64
	Fields         map[string]interface{}
}

type NotificationService interface {
	Notify(ctx context.Context, userUID string, n Note)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
}

type notificationService struct {
	repo     repository.NotificationRepository
	notifier realtime.Notifier
}

func NewNotificationService(repo repository.NotificationRepository, notifier realtime.Notifier) NotificationService {
	return &notificationService{repo: repo, notifier: notifier}
}

// Notify is best-effort; it logs errors but does not return them to avoid breaking main flows.
// The inbox row is written before the push so a dropped push can always be recovered by polling.
func (s *notificationService) Notify(ctx context.Context, userUID string, n Note) {
	if userUID == "" || n.Type == "" {
		return
	}
	row := &model.Notification{
		UserUID:        userUID,
		Type:           string(n.Type),
		Title:          n.Title,
		Body:           n.Body,
		ProjectID:      n.ProjectID,
		BidID:          n.BidID,
		PayoutID:       n.PayoutID,
		ConversationID: n.ConversationID,
	}
	wctx, cancel := withShortDeadline(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.repo.Create(wctx, row); err != nil {
		zap.L().Warn("notification persist failed",
			zap.String("user_id", userUID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.Notify(userUID, realtime.NewEvent(n.Type, n.eventFields()))
	}
}

func (n Note) eventFields() map[string]interface{} {
	fields := make(map[string]interface{}, len(n.Fields)+4)
	for k, v := range n.Fields {
		fields[k] = v
	}
	if n.ProjectID != nil {
		fields["projectId"] = *n.ProjectID
	}
	if n.BidID != nil {
		fields["bidId"] = *n.BidID
	}
	if n.PayoutID != nil {
		fields["payoutId"] = *n.PayoutID
	}
	if n.ConversationID != nil {
		fields["conversationId"] = *n.ConversationID
	}
	return fields
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

// withShortDeadline wraps context with a short deadline to avoid blocking main flow.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
