package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const maxInboundMessage = 4096

// TokenVerifier resolves an ID token to the user id it was issued for.
type TokenVerifier interface {
	VerifyUID(ctx context.Context, token string) (string, error)
}

type registerMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Token  string `json:"token,omitempty"`
}

type Handler struct {
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler serves the realtime endpoint. When verifier is nil the registration
// message is trusted as-is.
func NewHandler(hub *Hub, verifier TokenVerifier, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}
	conn.SetReadLimit(maxInboundMessage)
	cl := &client{conn: conn}
	registered := ""
	defer func() {
		if registered != "" {
			h.hub.unregister(registered, cl)
		}
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var msg registerMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "register" || msg.UserID == "" {
			continue
		}
		if h.verifier != nil {
			uid, err := h.verifier.VerifyUID(c.Request().Context(), msg.Token)
			if err != nil || uid != msg.UserID {
				zap.L().Warn("realtime registration rejected", zap.String("user_id", msg.UserID), zap.Error(err))
				continue
			}
		}
		if registered != "" && registered != msg.UserID {
			h.hub.unregister(registered, cl)
		}
		registered = msg.UserID
		h.hub.register(registered, cl)
	}
}
