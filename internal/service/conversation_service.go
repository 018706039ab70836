package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"go.uber.org/zap"
)

const maxMessageBody = 4000

type ConversationView struct {
	model.Conversation
	HasUnread bool `json:"hasUnread"`
}

type ConversationService interface {
	// Open returns the conversation between the project owner and a maker, creating it
	// on first use. Makers open their own thread; owners name the maker.
	Open(ctx context.Context, uid string, projectID uint64, makerUID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string) ([]ConversationView, error)
	ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error)
	PostMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error)
}

type conversationService struct {
	convRepo repository.ConversationRepository
	projects repository.ProjectRepository
	bids     repository.BidRepository
	notify   NotificationService
}

func NewConversationService(convRepo repository.ConversationRepository, projects repository.ProjectRepository, bids repository.BidRepository, notify NotificationService) ConversationService {
	return &conversationService{convRepo: convRepo, projects: projects, bids: bids, notify: notify}
}

func (s *conversationService) Open(ctx context.Context, uid string, projectID uint64, makerUID string) (*model.Conversation, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if project.OwnerUID == uid {
		if makerUID == "" || makerUID == uid {
			return nil, invalid("makerUid", "is required")
		}
		// Owners can only reach makers who bid on the project.
		bids, err := s.bids.ListByProjectAndMaker(ctx, projectID, makerUID)
		if err != nil {
			return nil, err
		}
		if len(bids) == 0 {
			return nil, ErrNotFound
		}
	} else {
		makerUID = uid
	}
	if project.Deleted() {
		return nil, ErrProjectDeleted
	}
	return s.convRepo.FindOrCreate(ctx, projectID, project.OwnerUID, makerUID)
}

func (s *conversationService) ListByUser(ctx context.Context, uid string) ([]ConversationView, error) {
	convs, err := s.convRepo.FindByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(convs))
	for _, cv := range convs {
		unread, err := s.convRepo.HasUnread(ctx, cv.ID, uid)
		if err != nil {
			return nil, err
		}
		out = append(out, ConversationView{Conversation: cv, HasUnread: unread})
	}
	return out, nil
}

func (s *conversationService) load(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !cv.Participant(uid) {
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *conversationService) ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error) {
	if _, err := s.load(ctx, convID, uid); err != nil {
		return nil, err
	}
	msgs, err := s.convRepo.ListMessages(ctx, convID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		if err := s.convRepo.MarkRead(ctx, convID, uid, msgs[len(msgs)-1].CreatedAt); err != nil {
			zap.L().Warn("mark conversation read failed", zap.Uint64("conversation_id", convID), zap.Error(err))
		}
	}
	return msgs, nil
}

func (s *conversationService) PostMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxMessageBody {
		return nil, invalid("body", "must be 1-4000 characters")
	}
	cv, err := s.load(ctx, convID, uid)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      uid,
		Body:           body,
	}
	if err := s.convRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.convRepo.MarkRead(ctx, convID, uid, msg.CreatedAt); err != nil {
		zap.L().Warn("mark conversation read failed", zap.Uint64("conversation_id", convID), zap.Error(err))
	}
	preview := body
	if utf8.RuneCountInString(preview) > 80 {
		preview = string([]rune(preview)[:80]) + "…"
	}
	s.notify.Notify(ctx, cv.Counterpart(uid), Note{
		Type:           realtime.EventNewMessage,
		Title:          "New message",
		Body:           preview,
		ProjectID:      uint64Ptr(cv.ProjectID),
		ConversationID: uint64Ptr(cv.ID),
		Fields: map[string]interface{}{
			"messageId": msg.ID,
			"senderUid": uid,
		},
	})
	return msg, nil
}
