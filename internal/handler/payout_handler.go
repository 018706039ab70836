package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/service"
	"github.com/shopspring/decimal"
)

type PayoutHandler struct {
	svc service.PayoutService
}

func NewPayoutHandler(svc service.PayoutService) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

type PayoutMethodRequest struct {
	Method          model.PayoutMethod `json:"method"`
	IBAN            string             `json:"iban"`
	AccountHolder   string             `json:"accountHolder"`
	PayPalAccountID string             `json:"paypalAccountId"`
	StripeAccountID string             `json:"stripeAccountId"`
}

func (r PayoutMethodRequest) destination() model.PayoutDestination {
	switch r.Method {
	case model.PayoutMethodBank:
		return model.BankDestination{IBAN: r.IBAN, AccountHolder: r.AccountHolder}
	case model.PayoutMethodPayPal:
		return model.PayPalDestination{AccountID: r.PayPalAccountID}
	case model.PayoutMethodStripe:
		return model.StripeDestination{ConnectAccountID: r.StripeAccountID}
	}
	return nil
}

type RequestPayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type PayoutResponse struct {
	ID            uint64             `json:"id"`
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	Method        model.PayoutMethod `json:"method"`
	Status        model.PayoutStatus `json:"status"`
	ExternalID    *string            `json:"externalId"`
	FailureReason string             `json:"failureReason,omitempty"`
	SentAt        *string            `json:"sentAt"`
	CompletedAt   *string            `json:"completedAt"`
	CreatedAt     string             `json:"createdAt"`
}

type EarningResponse struct {
	ID            uint64              `json:"id"`
	SourceType    model.EarningSource `json:"sourceType"`
	SourceID      uint64              `json:"sourceId"`
	Amount        decimal.Decimal     `json:"amount"`
	AvailableDate string              `json:"availableDate"`
	Status        string              `json:"status"`
	CreatedAt     string              `json:"createdAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toPayoutResponse(p *model.Payout) PayoutResponse {
	return PayoutResponse{
		ID:            p.ID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        p.Method,
		Status:        p.Status,
		ExternalID:    p.ExternalID,
		FailureReason: p.FailureReason,
		SentAt:        formatTimePtr(p.SentAt),
		CompletedAt:   formatTimePtr(p.CompletedAt),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func toPayoutList(list []model.Payout) []PayoutResponse {
	out := make([]PayoutResponse, 0, len(list))
	for i := range list {
		out = append(out, toPayoutResponse(&list[i]))
	}
	return out
}

func (h *PayoutHandler) Balance(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	bal, err := h.svc.Balance(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bal)
}

func (h *PayoutHandler) Earnings(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListEarnings(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]EarningResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, EarningResponse{
			ID:            e.ID,
			SourceType:    e.SourceType,
			SourceID:      e.SourceID,
			Amount:        e.Amount,
			AvailableDate: e.AvailableDate.Format(time.RFC3339),
			Status:        e.Status,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PayoutHandler) SetMethod(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req PayoutMethodRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	p, err := h.svc.SetPayoutMethod(c.Request().Context(), uid, req.destination())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toPayoutMethodResponse(p))
}

func (h *PayoutHandler) Request(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req RequestPayoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	p, err := h.svc.RequestPayout(c.Request().Context(), uid, req.Amount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toPayoutResponse(p))
}

func (h *PayoutHandler) List(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListPayouts(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toPayoutList(list))
}

func (h *PayoutHandler) Verify(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.VerifyPayouts(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toPayoutList(list))
}
