package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/singhalkarun/scribble/backend/go/internal/v1/auth"
	"github.com/singhalkarun/scribble/backend/go/internal/v1/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// tokenExtractionResult records where the bearer token came from so the
// WebSocket upgrade can echo back the right subprotocol.
type tokenExtractionResult struct {
	Token                  string
	FromHeader             bool
	HasAccessTokenProtocol bool
}

// extractToken prefers the Sec-WebSocket-Protocol header (the browser
// WebSocket API has no custom-header support, so this is the only way
// a browser client can avoid putting the token in the URL) and falls
// back to the legacy query parameter.
func (h *Hub) extractToken(c *gin.Context) (*tokenExtractionResult, error) {
	result := &tokenExtractionResult{}

	headerVal := c.GetHeader("Sec-WebSocket-Protocol")
	if headerVal != "" {
		for _, p := range strings.Split(headerVal, ",") {
			p = strings.TrimSpace(p)
			if p == "access_token" {
				result.HasAccessTokenProtocol = true
				continue
			}
			if p != "" {
				if _, err := h.validator.ValidateToken(p); err == nil {
					result.Token = p
					result.FromHeader = true
				}
			}
		}
	}

	if result.Token == "" {
		result.Token = c.Query("token")
	}
	if result.Token == "" {
		return nil, errors.New("token not provided")
	}
	return result, nil
}

// validateOrigin allows the request through when there's no Origin
// header at all (non-browser clients), otherwise requires an exact
// scheme+host match against the configured allow-list.
func validateOrigin(r *http.Request, allowedOrigins []string) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return err
	}

	for _, allowed := range allowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return nil
		}
	}
	return errors.New("origin not allowed")
}

func (h *Hub) authenticateUser(ctx context.Context, token string) (*auth.CustomClaims, error) {
	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		logging.Warn(ctx, "token validation failed", zap.Error(err))
		return nil, err
	}
	return claims, nil
}

// clientSetupParams carries everything setupClientConnection needs to
// build a Client and resolve which Room it belongs to.
type clientSetupParams struct {
	RoomID   RoomIDType
	Claims   *auth.CustomClaims
	DevMode  bool
	RoomType string
	Conn     wsConnection
}

// setupClientConnection gets or creates the target room and builds the
// Client struct for the new connection. In dev mode (MockValidator),
// tokens may all carry the same default subject, so the display name
// from the token's name claim is used as the user id to disambiguate
// otherwise-identical dev users.
func (h *Hub) setupClientConnection(params *clientSetupParams) (*Client, *Room) {
	room := h.getOrCreateRoomWithSettings(params.RoomID, params.RoomType)

	userID := UserIDType(params.Claims.Subject)
	displayName := params.Claims.Name
	if displayName == "" {
		displayName = params.Claims.Subject
	}
	if params.DevMode && displayName != "" {
		userID = UserIDType(displayName)
	}

	client := &Client{
		conn:        params.Conn,
		send:        make(chan []byte, 256),
		room:        room,
		UserID:      userID,
		DisplayName: DisplayNameType(displayName),
		RoomID:      params.RoomID,
	}

	return client, room
}

// upgradeWebSocket performs the HTTP->WebSocket upgrade. Origin is
// already validated by the caller; CheckOrigin re-runs the same check
// because gorilla/websocket requires it be supplied here.
func (h *Hub) upgradeWebSocket(c *gin.Context, allowedOrigins []string, tokenResult *tokenExtractionResult) (wsConnection, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return validateOrigin(r, allowedOrigins) == nil
		},
		WriteBufferPool: &sync.Pool{
			New: func() any { return make([]byte, 4096) },
		},
	}

	responseHeader := http.Header{}
	if tokenResult.FromHeader {
		if tokenResult.HasAccessTokenProtocol {
			responseHeader.Set("Sec-WebSocket-Protocol", "access_token")
		} else {
			responseHeader.Set("Sec-WebSocket-Protocol", tokenResult.Token)
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, responseHeader)
	if err != nil {
		logging.Error(context.Background(), "failed to upgrade connection", zap.Error(err))
		return nil, err
	}
	return conn, nil
}
