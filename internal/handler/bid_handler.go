package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shinyyama/voxelhub-backend/internal/service"
	"github.com/shopspring/decimal"
)

type BidHandler struct {
	svc service.BidService
}

func NewBidHandler(svc service.BidService) *BidHandler {
	return &BidHandler{svc: svc}
}

type BidResponse struct {
	ID                  uint64          `json:"id"`
	ProjectID           uint64          `json:"projectId"`
	MakerUID            string          `json:"makerUid"`
	Price               decimal.Decimal `json:"price"`
	DeliveryDays        int             `json:"deliveryDays"`
	Message             string          `json:"message"`
	Status              model.BidStatus `json:"status"`
	IsRead              bool            `json:"isRead"`
	DeliveryConfirmedAt *string         `json:"deliveryConfirmedAt"`
	CreatedAt           string          `json:"createdAt"`
}

type SubmitBidRequest struct {
	Price        decimal.Decimal `json:"price"`
	DeliveryDays int             `json:"deliveryDays"`
	Message      string          `json:"message"`
}

type EditBidRequest struct {
	Price        *decimal.Decimal `json:"price"`
	DeliveryDays *int             `json:"deliveryDays"`
	Message      *string          `json:"message"`
}

type RatingRequest struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type ReviewResponse struct {
	ID          uint64                `json:"id"`
	BidID       uint64                `json:"bidId"`
	ProjectID   uint64                `json:"projectId"`
	Direction   model.ReviewDirection `json:"direction"`
	ReviewerUID string                `json:"reviewerUid"`
	RevieweeUID string                `json:"revieweeUid"`
	Rating      float64               `json:"rating"`
	Comment     string                `json:"comment"`
	CreatedAt   string                `json:"createdAt"`
}

func toBidResponse(b *model.Bid) BidResponse {
	resp := BidResponse{
		ID:           b.ID,
		ProjectID:    b.ProjectID,
		MakerUID:     b.MakerUID,
		Price:        b.Price,
		DeliveryDays: b.DeliveryDays,
		Message:      b.Message,
		Status:       b.Status,
		IsRead:       b.IsRead,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
	if b.DeliveryConfirmedAt != nil {
		s := b.DeliveryConfirmedAt.Format(time.RFC3339)
		resp.DeliveryConfirmedAt = &s
	}
	return resp
}

func toBidList(list []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(list))
	for i := range list {
		out = append(out, toBidResponse(&list[i]))
	}
	return out
}

func toReviewResponse(r *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:          r.ID,
		BidID:       r.BidID,
		ProjectID:   r.ProjectID,
		Direction:   r.Direction,
		ReviewerUID: r.ReviewerUID,
		RevieweeUID: r.RevieweeUID,
		Rating:      r.Rating,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func (h *BidHandler) Submit(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	var req SubmitBidRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	b, err := h.svc.Submit(c.Request().Context(), uid, projectID, service.BidInput{
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
		Message:      req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toBidResponse(b))
}

func (h *BidHandler) Accept(c echo.Context) error {
	return h.ownerAction(c, h.svc.Accept)
}

func (h *BidHandler) Reject(c echo.Context) error {
	return h.ownerAction(c, h.svc.Reject)
}

func (h *BidHandler) ownerAction(c echo.Context, fn func(ctx context.Context, clientUID string, bidID uint64) (*model.Bid, error)) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	b, err := fn(c.Request().Context(), uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBidResponse(b))
}

func (h *BidHandler) Edit(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	var req EditBidRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	b, err := h.svc.Edit(c.Request().Context(), uid, id, repository.BidUpdate{
		Price:        req.Price,
		DeliveryDays: req.DeliveryDays,
		Message:      req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBidResponse(b))
}

func (h *BidHandler) Withdraw(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	if err := h.svc.Withdraw(c.Request().Context(), uid, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BidHandler) ConfirmDelivery(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	var req RatingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	b, err := h.svc.ConfirmDelivery(c.Request().Context(), uid, id, req.Rating, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBidResponse(b))
}

func (h *BidHandler) RateClient(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	var req RatingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	r, err := h.svc.RateClient(c.Request().Context(), uid, id, req.Rating, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toReviewResponse(r))
}

// ListForProject shows every bid to the owner and only their own bids to a maker.
func (h *BidHandler) ListForProject(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	list, err := h.svc.ListForProject(c.Request().Context(), uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBidList(list))
}

func (h *BidHandler) ListMine(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListForMaker(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBidList(list))
}

func (h *BidHandler) MarkRead(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid project id")
	}
	if err := h.svc.MarkProjectBidsRead(c.Request().Context(), uid, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
