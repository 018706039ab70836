package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, projectID uint64, clientUID, makerUID string) (*model.Conversation, error)
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, convID uint64) ([]model.Message, error)
	MarkRead(ctx context.Context, convID uint64, uid string, at time.Time) error
	HasUnread(ctx context.Context, convID uint64, uid string) (bool, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, projectID uint64, clientUID, makerUID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	cv := model.Conversation{ProjectID: projectID, ClientUID: clientUID, MakerUID: makerUID}
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND maker_uid = ?", projectID, makerUID).
		FirstOrCreate(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("client_uid = ? OR maker_uid = ?", uid, uid).
		Order("updated_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *conversationRepository) MarkRead(ctx context.Context, convID uint64, uid string, at time.Time) error {
	st := model.ConversationState{ConversationID: convID, UID: uid, LastReadAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "uid"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_read_at": at}),
	}).Create(&st).Error
}

func (r *conversationRepository) HasUnread(ctx context.Context, convID uint64, uid string) (bool, error) {
	var st model.ConversationState
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND uid = ?", convID, uid).
		First(&st).Error
	q := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_uid <> ?", convID, uid)
	switch {
	case err == nil:
		q = q.Where("created_at > ?", st.LastReadAt)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
