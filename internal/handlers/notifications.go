package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/middleware"
	"github.com/jason-s-yu/parley/internal/notify"
)

// Subscriber opens a per-user event stream.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (*notify.Subscription, error)
}

// notificationsWS streams the caller's friend request events as JSON text frames.
// The socket is write-only; client frames are discarded.
func (a *API) notificationsWS(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)

	sub, err := a.Notifications.Subscribe(r.Context(), me.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	defer sub.Close()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: a.originPatterns(),
	})
	if err != nil {
		a.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	middleware.LogWebSocketConnect(a.Logger, r.RemoteAddr, r.URL.Path, me.ID.String())

	ctx := c.CloseRead(r.Context())
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				middleware.LogWebSocketDisconnect(a.Logger, r.RemoteAddr, r.URL.Path, me.ID.String(), nil)
				return
			}
			middleware.LogWebSocketDisconnect(a.Logger, r.RemoteAddr, r.URL.Path, me.ID.String(), err)
			c.Close(websocket.StatusInternalError, "notification stream failed")
			return
		}
		if err := wsjson.Write(ctx, c, ev); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				err = nil
			}
			middleware.LogWebSocketDisconnect(a.Logger, r.RemoteAddr, r.URL.Path, me.ID.String(), err)
			return
		}
	}
}

func (a *API) originPatterns() []string {
	u, err := url.Parse(a.ClientURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
