package gateway

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/narvanalabs/preview-gateway/internal/models"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The preview runs inside a sandboxed frame on the platform's
		// origin; cross-origin upgrade checks happen at the platform edge.
		return true
	},
}

// isWebSocketUpgrade reports whether the request asks for a protocol
// upgrade (the previewed app's live-reload/HMR socket).
func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// handleWebSocket bridges a client websocket to the instance's backing
// process so hot-reload keeps working through the proxy.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request, inst *models.PreviewInstance, targetPath string) {
	backendURL := "ws://" + inst.BackingAddress + targetPath
	query := r.URL.Query()
	query.Del(g.tokenParam)
	if q := query.Encode(); q != "" {
		backendURL += "?" + q
	}

	// Dial upstream first: if the instance's socket endpoint is gone there
	// is nothing to upgrade the client for.
	requestHeader := http.Header{}
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		requestHeader.Set("Sec-WebSocket-Protocol", proto)
	}
	upstream, _, err := websocket.DefaultDialer.DialContext(r.Context(), backendURL, requestHeader)
	if err != nil {
		g.logger.Debug("websocket upstream dial failed",
			"instance_id", inst.ID, "url", backendURL, "error", err)
		http.Error(w, "preview socket unavailable", http.StatusBadGateway)
		return
	}
	defer upstream.Close()

	client, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer client.Close()

	g.registry.Touch(inst.ID)

	errc := make(chan error, 2)
	go pumpWebSocket(client, upstream, errc)
	go pumpWebSocket(upstream, client, errc)
	<-errc
}

// pumpWebSocket copies messages from src to dst until either side closes.
func pumpWebSocket(src, dst *websocket.Conn, errc chan<- error) {
	for {
		msgType, msg, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(msgType, msg); err != nil {
			errc <- err
			return
		}
	}
}
