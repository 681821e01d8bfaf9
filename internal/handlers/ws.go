package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from the same host; cross-origin use is
	// a local-network deployment concern, not an auth boundary.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const torrentPushInterval = 2 * time.Second

// TorrentSocket streams the normalized torrent list to the dashboard.
// One snapshot is pushed immediately, then one per tick until the peer
// goes away.
func (h *APIHandler) TorrentSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain control frames so pings and the close handshake work.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(torrentPushInterval)
	defer ticker.Stop()

	for {
		torrents, err := h.manager.Torrents()
		if err != nil {
			h.logger.WithError(err).Debug("Torrent list for websocket failed")
			torrents = nil
		}
		if err := conn.WriteJSON(torrents); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}
