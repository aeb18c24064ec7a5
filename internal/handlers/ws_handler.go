package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/Aninda2000/Royal-Media-sub001/internal/delivery"
	"github.com/Aninda2000/Royal-Media-sub001/internal/middleware"
	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/realtime"
	"github.com/labstack/echo/v4"
	"github.com/olahol/melody"
)

const sessionUserKey = "userId"

// WSHandler owns the realtime endpoint: one persistent connection per
// session, authenticated at handshake, registered with the fanout hub for
// the lifetime of the socket.
type WSHandler struct {
	m          *melody.Melody
	hub        *realtime.Hub
	gate       *delivery.Gate
	authClient *auth.Client
}

// NewWSHandler wires a melody instance to the hub and the delivery gate.
// authClient may be nil; then only platform JWTs are accepted at handshake.
func NewWSHandler(hub *realtime.Hub, gate *delivery.Gate, authClient *auth.Client) *WSHandler {
	h := &WSHandler{
		m:          melody.New(),
		hub:        hub,
		gate:       gate,
		authClient: authClient,
	}
	h.m.HandleConnect(h.onConnect)
	h.m.HandleDisconnect(h.onDisconnect)
	h.m.HandleMessage(h.onMessage)
	return h
}

// RegisterWSRoute exposes the websocket upgrade endpoint.
func (h *WSHandler) RegisterWSRoute(e *echo.Echo) {
	e.GET("/ws", func(c echo.Context) error {
		return h.m.HandleRequest(c.Response(), c.Request())
	})
}

// authenticate resolves the handshake credential to a recipient id. Firebase
// ID tokens are tried first, platform JWTs as fallback.
func (h *WSHandler) authenticate(token string) string {
	if token == "" {
		return ""
	}
	if h.authClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if t, err := h.authClient.VerifyIDToken(ctx, token); err == nil {
			return t.UID
		}
	}
	if claims, err := middleware.ParseToken(token); err == nil {
		return claims.UserID
	}
	return ""
}

func handshakeToken(s *melody.Session) string {
	if token := s.Request.URL.Query().Get("token"); token != "" {
		return token
	}
	header := s.Request.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}

func (h *WSHandler) onConnect(s *melody.Session) {
	userID := h.authenticate(handshakeToken(s))
	if userID == "" {
		h.writeError(s, "unauthorized")
		_ = s.Close()
		return
	}
	s.Set(sessionUserKey, userID)
	h.hub.Register(userID, s)
}

func (h *WSHandler) onDisconnect(s *melody.Session) {
	if userID, ok := s.Get(sessionUserKey); ok {
		h.hub.Unregister(userID.(string), s)
	}
}

// onMessage handles the single inbound event kind: a client-originated send
// request. It goes through the delivery gate exactly like any producer
// event, so a client can neither forge sent flags nor bypass preferences.
func (h *WSHandler) onMessage(s *melody.Session, msg []byte) {
	userID, ok := s.Get(sessionUserKey)
	if !ok {
		return
	}

	var env realtime.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.writeError(s, "malformed frame")
		return
	}
	if env.Type != realtime.EventSendRequest {
		h.writeError(s, "unknown event "+env.Type)
		return
	}

	var ev models.Event
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		h.writeError(s, "malformed event payload")
		return
	}
	ev.ActorID = userID.(string)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := h.gate.Evaluate(ctx, &ev); err != nil {
		h.writeError(s, err.Error())
	}
}

func (h *WSHandler) writeError(s *melody.Session, msg string) {
	frame, err := realtime.Encode("error", map[string]string{"message": msg})
	if err != nil {
		log.Printf("ws: encoding error frame failed: %v", err)
		return
	}
	_ = s.Write(frame)
}
