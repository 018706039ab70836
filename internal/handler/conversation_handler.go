package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/service"
)

type ConversationHandler struct {
	svc service.ConversationService
}

func NewConversationHandler(svc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type ConversationResponse struct {
	ConversationID uint64 `json:"conversationId"`
	ProjectID      uint64 `json:"projectId"`
	ClientUID      string `json:"clientUid"`
	MakerUID       string `json:"makerUid"`
	HasUnread      bool   `json:"hasUnread"`
	UpdatedAt      string `json:"updatedAt"`
}

type OpenConversationRequest struct {
	MakerUID string `json:"makerUid"`
}

type MessageRequest struct {
	Body string `json:"body"`
}

type MessageResponse struct {
	ID        uint64 `json:"id"`
	SenderUID string `json:"senderUid"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func toConversationResponse(cv model.Conversation, unread bool) ConversationResponse {
	return ConversationResponse{
		ConversationID: cv.ID,
		ProjectID:      cv.ProjectID,
		ClientUID:      cv.ClientUID,
		MakerUID:       cv.MakerUID,
		HasUnread:      unread,
		UpdatedAt:      cv.UpdatedAt.Format(time.RFC3339),
	}
}

func toMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SenderUID: m.SenderUID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ConversationHandler) Open(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	var req OpenConversationRequest
	_ = c.Bind(&req)
	cv, err := h.svc.Open(c.Request().Context(), uid, projectID, req.MakerUID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(*cv, false))
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	convs, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]ConversationResponse, 0, len(convs))
	for _, cv := range convs {
		resp = append(resp, toConversationResponse(cv.Conversation, cv.HasUnread))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid conversation id")
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) CreateMessage(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid conversation id")
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	msg, err := h.svc.PostMessage(c.Request().Context(), id, uid, req.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(*msg))
}
