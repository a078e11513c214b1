// Package transport wraps gorilla/websocket behind the contract.Socket
// abstraction so the channel managers stay testable without a network.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"lovewire/contract"
)

const presencePath = "/my-ws/presence/"

// WSDialer opens websocket connections with the default gorilla dialer.
type WSDialer struct {
	dialer *websocket.Dialer
}

func NewWSDialer() *WSDialer {
	return &WSDialer{dialer: websocket.DefaultDialer}
}

func (d *WSDialer) Dial(ctx context.Context, endpoint string) (contract.Socket, error) {
	conn, _, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return conn, nil
}

// PresenceURL builds the presence endpoint from the configured HTTP origin.
func PresenceURL(base, token string) string {
	return socketURL(base, presencePath, token)
}

// ChatURL builds the per-conversation chat endpoint.
func ChatURL(base, conversationID, token string) string {
	return socketURL(base, fmt.Sprintf("/my-ws/chat/%s/", conversationID), token)
}

// socketURL turns the http(s) origin into its ws(s) counterpart and appends
// the access token, the only authentication the socket endpoints accept.
func socketURL(base, path, token string) string {
	origin := strings.Replace(base, "http", "ws", 1)
	origin = strings.TrimRight(origin, "/")
	return fmt.Sprintf("%s%s?token=%s", origin, path, url.QueryEscape(token))
}

// CloseNormally sends a normal-closure frame before closing, so the server
// does not count the teardown as a failure. Errors are ignored: the socket
// may already be gone.
func CloseNormally(s contract.Socket, reason string) {
	_ = s.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	_ = s.Close()
}
