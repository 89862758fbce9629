package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"realtime-gateway/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// localsEpochKey is the fiber.Ctx locals key AuthController.UpgradeMiddleware
// stores a strict-mode-resolved epoch under, for handleUpgrade to read back
// via conn.Locals after the protocol switch. Handshake and public mode never
// populate it; handleUpgrade treats its absence as "resolve later/never".
const localsEpochKey = "gateway_epoch"

// AuthController implements the three upgrade-time authentication postures
// of spec §4.1 and the inline re-authentication / credential resolution of
// spec §4.2. Grounded on internal/auth/adapter/http/middleware.go's
// AuthMiddleware (header/query token extraction, ValidateToken call shape).
type AuthController struct {
	mode     AuthMode
	resolver AccountabilityResolver
	authSvc  AuthenticationService
	cfg      *Config
	log      logger.Logger
}

func NewAuthController(mode AuthMode, resolver AccountabilityResolver, authSvc AuthenticationService, cfg *Config, log logger.Logger) *AuthController {
	return &AuthController{mode: mode, resolver: resolver, authSvc: authSvc, cfg: cfg, log: log.WithComponent("auth")}
}

// UpgradeMiddleware gates the HTTP->WebSocket switch. In strict mode it
// resolves access_token up front and rejects the upgrade outright on
// failure; in handshake mode it defers to AdmitHandshake after the switch;
// in public mode it admits unconditionally with no credentials.
func (a *AuthController) UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		switch a.mode {
		case AuthModeStrict:
			token := c.Query("access_token")
			if token == "" {
				token = extractBearer(c.Get("Authorization"))
			}
			if token == "" {
				return fiber.NewError(fiber.StatusUnauthorized, "access_token is required")
			}
			acc, exp, err := a.resolver.ResolveForToken(c.UserContext(), token)
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid access token")
			}
			c.Locals(localsEpochKey, AuthEpoch{Accountability: acc, ExpiresAt: exp})
		case AuthModeHandshake, AuthModePublic:
			// resolved after the switch (handshake) or never (public).
		}

		return c.Next()
	}
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// AdmitHandshake blocks for up to cfg.AuthTimeout() waiting for the first
// frame to be an AUTH message, per spec §4.1's handshake mode. It returns
// false if the deadline passes, the first frame isn't AUTH, or credential
// resolution fails — the caller must close the socket in every false case.
func (a *AuthController) AdmitHandshake(ctx context.Context, conn *websocket.Conn) (AuthEpoch, bool) {
	type firstFrame struct {
		msg InboundMessage
		err error
	}
	frameCh := make(chan firstFrame, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			frameCh <- firstFrame{err: err}
			return
		}
		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			frameCh <- firstFrame{err: err}
			return
		}
		msg.NormalizeType()
		frameCh <- firstFrame{msg: msg}
	}()

	select {
	case ff := <-frameCh:
		if ff.err != nil {
			return AuthEpoch{}, false
		}
		if ff.msg.Type != TypeAuth {
			a.sendHandshakeError(conn, AuthenticationFailed("first message must be AUTH", nil))
			return AuthEpoch{}, false
		}
		epoch, gwErr := a.resolveCredentials(ctx, ff.msg)
		if gwErr != nil {
			a.sendHandshakeError(conn, gwErr)
			return AuthEpoch{}, false
		}
		_ = conn.WriteJSON(OutboundMessage{Type: TypeAuthReply, UID: ff.msg.UID, Status: "ok"})
		return epoch, true
	case <-time.After(a.cfg.AuthTimeout()):
		a.sendHandshakeError(conn, NewError(CodeAuthenticationFailed, "authentication handshake timed out", nil))
		return AuthEpoch{}, false
	}
}

func (a *AuthController) sendHandshakeError(conn *websocket.Conn, err *Error) {
	_ = conn.WriteJSON(err.WithOrigin(TypeAuthReply).ToFrame(""))
}

// HandleInlineAuth re-runs credential resolution for an AUTH frame received
// on an already-open connection (spec §4.2's inline re-authentication). On
// success it replaces the client's epoch wholesale and re-arms the expiry
// timer; on failure the epoch falls back to public without closing the
// socket, matching spec §4.3's token-expiry degrade-not-disconnect stance.
func (a *AuthController) HandleInlineAuth(ctx context.Context, client *Client, msg InboundMessage, mgr *Manager) {
	priorAcc := client.Epoch().Accountability

	epoch, gwErr := a.resolveCredentials(ctx, msg)
	if gwErr != nil {
		client.setEpoch(PublicEpoch())
		if priorAcc.IsAuthenticated() {
			mgr.presence.Disconnect(ctx, priorAcc.User)
		}
		client.safeSend(ctx, gwErr.WithOrigin(TypeAuthReply).ToFrame(msg.UID), mgr.cfg.SendRetryDelay, mgr.cfg.MaxSendRetries)
		mgr.bus.PublishLifecycle(ctx, LifecycleEvent{Kind: LifecycleAuthFailure, Client: client, Err: gwErr})
		return
	}

	client.setEpoch(epoch)
	client.signalReauthenticated()
	mgr.armExpiryTimer(client)
	client.safeSend(ctx, OutboundMessage{Type: TypeAuthReply, UID: msg.UID, Status: "ok"}, mgr.cfg.SendRetryDelay, mgr.cfg.MaxSendRetries)
	// A re-authentication that switches identities must drop the old
	// user's presence count before adopting the new one — otherwise the
	// old user never reaches zero live connections and stays "online"
	// forever (spec §8 invariant 3).
	if priorAcc.IsAuthenticated() && (!epoch.Accountability.IsAuthenticated() || priorAcc.User != epoch.Accountability.User) {
		mgr.presence.Disconnect(ctx, priorAcc.User)
	}
	if epoch.Accountability.IsAuthenticated() && priorAcc.User != epoch.Accountability.User {
		mgr.presence.Connect(epoch.Accountability.User)
	}
	mgr.bus.PublishLifecycle(ctx, LifecycleEvent{Kind: LifecycleAuthSuccess, Client: client})
}

// resolveCredentials implements spec §4.2's three credential shapes:
// email+password, refresh_token, and access_token, each resolved down to an
// Accountability via the AccountabilityResolver.
func (a *AuthController) resolveCredentials(ctx context.Context, msg InboundMessage) (AuthEpoch, *Error) {
	var token string
	var expiresAt *time.Time

	switch {
	case msg.Email != "" && msg.Password != "":
		accessToken, exp, err := a.authSvc.Login(ctx, msg.Email, msg.Password)
		if err != nil {
			return AuthEpoch{}, AuthenticationFailed("invalid email or password", err)
		}
		token, expiresAt = accessToken, exp
	case msg.RefreshToken != "":
		accessToken, err := a.authSvc.Refresh(ctx, msg.RefreshToken)
		if err != nil {
			return AuthEpoch{}, AuthenticationFailed("invalid refresh token", err)
		}
		token = accessToken
	case msg.AccessToken != "":
		token = msg.AccessToken
	default:
		return AuthEpoch{}, InvalidPayload("AUTH requires email+password, refresh_token, or access_token", nil)
	}

	acc, exp, err := a.resolver.ResolveForToken(ctx, token)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return AuthEpoch{}, AuthenticationFailed("authentication timed out", err)
		}
		return AuthEpoch{}, AuthenticationFailed("invalid or expired token", err)
	}
	if expiresAt == nil {
		expiresAt = exp
	}
	return AuthEpoch{Accountability: acc, ExpiresAt: expiresAt}, nil
}
