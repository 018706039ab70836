package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/service"
	"github.com/shopspring/decimal"
)

type DesignHandler struct {
	svc service.DesignService
}

func NewDesignHandler(svc service.DesignService) *DesignHandler {
	return &DesignHandler{svc: svc}
}

type DesignResponse struct {
	ID          uint64          `json:"id"`
	MakerUID    string          `json:"makerUid"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	FileURL     *string         `json:"fileUrl,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

type DesignListResponse struct {
	Designs []DesignResponse `json:"designs"`
	Total   int64            `json:"total"`
}

type StartPurchaseRequest struct {
	PaymentMethod model.PayoutMethod `json:"paymentMethod"`
}

type DesignPurchaseResponse struct {
	ID            uint64                     `json:"id"`
	DesignID      uint64                     `json:"designId"`
	BuyerUID      string                     `json:"buyerUid"`
	MakerUID      string                     `json:"makerUid"`
	Amount        decimal.Decimal            `json:"amount"`
	PaymentMethod model.PayoutMethod         `json:"paymentMethod"`
	PaymentRef    *string                    `json:"paymentRef,omitempty"`
	CheckoutToken string                     `json:"checkoutToken,omitempty"`
	Status        model.DesignPurchaseStatus `json:"status"`
	CompletedAt   *string                    `json:"completedAt"`
	CreatedAt     string                     `json:"createdAt"`
	Design        *DesignResponse            `json:"design,omitempty"`
}

func toDesignResponse(d *model.Design) DesignResponse {
	return DesignResponse{
		ID:          d.ID,
		MakerUID:    d.MakerUID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		FileURL:     d.FileURL,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

func toDesignPurchaseResponse(p *model.DesignPurchase) DesignPurchaseResponse {
	return DesignPurchaseResponse{
		ID:            p.ID,
		DesignID:      p.DesignID,
		BuyerUID:      p.BuyerUID,
		MakerUID:      p.MakerUID,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		PaymentRef:    p.PaymentRef,
		CheckoutToken: p.CheckoutToken,
		Status:        p.Status,
		CompletedAt:   formatTimePtr(p.CompletedAt),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func (h *DesignHandler) Create(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	price, err := decimal.NewFromString(c.FormValue("price"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, newFieldError("price", "price must be a number"))
	}
	in := service.DesignInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Price:       price,
	}
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "failed to read uploaded file")
		}
		defer f.Close()
		in.File = &service.FileUpload{Name: fh.Filename, Size: fh.Size, Content: f}
	}
	d, err := h.svc.Create(c.Request().Context(), uid, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toDesignResponse(d))
}

func (h *DesignHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toDesignResponse(d))
}

func (h *DesignHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	list, total, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	resp := DesignListResponse{Designs: make([]DesignResponse, 0, len(list)), Total: total}
	for i := range list {
		resp.Designs = append(resp.Designs, toDesignResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *DesignHandler) StartPurchase(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req StartPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	p, err := h.svc.StartPurchase(c.Request().Context(), uid, id, req.PaymentMethod)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toDesignPurchaseResponse(p))
}

func (h *DesignHandler) CompletePurchase(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := h.svc.CompletePurchase(c.Request().Context(), uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toDesignPurchaseResponse(p))
}

func (h *DesignHandler) CancelPurchase(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	p, err := h.svc.CancelPurchase(c.Request().Context(), uid, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toDesignPurchaseResponse(p))
}

func (h *DesignHandler) ListPurchases(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListPurchases(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]DesignPurchaseResponse, 0, len(list))
	for i := range list {
		r := toDesignPurchaseResponse(&list[i].Purchase)
		if list[i].Design != nil {
			d := toDesignResponse(list[i].Design)
			r.Design = &d
		}
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}
