package handler

import (
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/service"
)

type UserHandler struct {
	svc        service.ProfileService
	authClient *auth.Client
}

// NewUserHandler serves registration and profiles. client may be nil, in which case
// public lookups fall back to the stored display name.
func NewUserHandler(svc service.ProfileService, client *auth.Client) *UserHandler {
	return &UserHandler{svc: svc, authClient: client}
}

type RegisterRequest struct {
	Role        model.Role `json:"role"`
	DisplayName string     `json:"displayName"`
}

type UserResponse struct {
	UID         string     `json:"uid"`
	Role        model.Role `json:"role"`
	DisplayName string     `json:"displayName"`
}

type MakerProfileRequest struct {
	DisplayName string `json:"displayName"`
	Location    string `json:"location"`
	Printers    string `json:"printers"`
	Materials   string `json:"materials"`
	Bio         string `json:"bio"`
}

type PayoutMethodResponse struct {
	Method        model.PayoutMethod `json:"method,omitempty"`
	Destination   string             `json:"destination,omitempty"`
	AccountHolder string             `json:"accountHolder,omitempty"`
}

type MakerProfileResponse struct {
	UID          string                `json:"uid"`
	DisplayName  string                `json:"displayName"`
	Location     string                `json:"location"`
	Printers     string                `json:"printers"`
	Materials    string                `json:"materials"`
	Bio          string                `json:"bio"`
	Complete     bool                  `json:"complete"`
	PayoutMethod *PayoutMethodResponse `json:"payoutMethod,omitempty"`
	UpdatedAt    string                `json:"updatedAt"`
}

type PublicMakerResponse struct {
	UID           string           `json:"uid"`
	DisplayName   string           `json:"displayName"`
	Location      string           `json:"location"`
	Printers      string           `json:"printers"`
	Materials     string           `json:"materials"`
	Bio           string           `json:"bio"`
	PhotoURL      *string          `json:"photoURL"`
	AverageRating *float64         `json:"averageRating"`
	Reviews       []ReviewResponse `json:"reviews"`
}

// mask keeps the last four characters of an account reference.
func mask(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return s
	}
	out := make([]rune, 0, len(r))
	for range r[:len(r)-4] {
		out = append(out, '•')
	}
	return string(append(out, r[len(r)-4:]...))
}

func toPayoutMethodResponse(p *model.MakerProfile) *PayoutMethodResponse {
	d, err := p.Destination()
	if err != nil {
		return nil
	}
	resp := &PayoutMethodResponse{Method: d.Method()}
	switch v := d.(type) {
	case model.BankDestination:
		resp.Destination = mask(v.IBAN)
		resp.AccountHolder = v.AccountHolder
	case model.PayPalDestination:
		resp.Destination = v.AccountID
	case model.StripeDestination:
		resp.Destination = v.ConnectAccountID
	}
	return resp
}

func toMakerProfileResponse(p *model.MakerProfile) MakerProfileResponse {
	return MakerProfileResponse{
		UID:          p.UID,
		DisplayName:  p.DisplayName,
		Location:     p.Location,
		Printers:     p.Printers,
		Materials:    p.Materials,
		Bio:          p.Bio,
		Complete:     p.Complete(),
		PayoutMethod: toPayoutMethodResponse(p),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *UserHandler) Register(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	u, err := h.svc.Register(c.Request().Context(), uid, req.Role, req.DisplayName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, UserResponse{UID: u.UID, Role: u.Role, DisplayName: u.DisplayName})
}

func (h *UserHandler) Me(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	u, err := h.svc.Me(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, UserResponse{UID: u.UID, Role: u.Role, DisplayName: u.DisplayName})
}

func (h *UserHandler) UpsertMakerProfile(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req MakerProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	p, err := h.svc.UpsertMakerProfile(c.Request().Context(), uid, service.MakerProfileInput{
		DisplayName: req.DisplayName,
		Location:    req.Location,
		Printers:    req.Printers,
		Materials:   req.Materials,
		Bio:         req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toMakerProfileResponse(p))
}

func (h *UserHandler) GetMakerProfile(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.svc.GetMakerProfile(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toMakerProfileResponse(p))
}

// GetPublicMaker returns the public face of a maker: profile, photo and reviews.
func (h *UserHandler) GetPublicMaker(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return badRequest(c, "invalid uid")
	}
	ctx := c.Request().Context()
	p, err := h.svc.GetMakerProfile(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	reviews, err := h.svc.Reviews(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := PublicMakerResponse{
		UID:         p.UID,
		DisplayName: p.DisplayName,
		Location:    p.Location,
		Printers:    p.Printers,
		Materials:   p.Materials,
		Bio:         p.Bio,
		Reviews:     make([]ReviewResponse, 0, len(reviews)),
	}
	var sum float64
	for i := range reviews {
		sum += reviews[i].Rating
		resp.Reviews = append(resp.Reviews, toReviewResponse(&reviews[i]))
	}
	if len(reviews) > 0 {
		avg := sum / float64(len(reviews))
		resp.AverageRating = &avg
	}
	if h.authClient != nil {
		if user, err := h.authClient.GetUser(ctx, uid); err == nil {
			resp.PhotoURL = strPtrOrNil(user.PhotoURL)
			if resp.DisplayName == "" {
				resp.DisplayName = user.DisplayName
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
