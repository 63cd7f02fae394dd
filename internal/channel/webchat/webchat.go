// Package webchat is the embedded web chat surface: one WebSocket per
// visitor, JSON frames in both directions.
package webchat

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pocketmedic/triage-gateway/internal/channel"
)

type WebChatAdapter struct {
	port     int
	incoming chan *channel.Message
	upgrader websocket.Upgrader
	conns    map[string]*websocket.Conn
	connMux  sync.RWMutex
	stopCh   chan struct{}
	logger   *slog.Logger
}

// WSMessage is the wire frame. Type is "message" for consultations; other
// types (typing indicators) are ignored.
type WSMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	UserID  string `json:"user_id,omitempty"`
}

func NewWebChatAdapter(port int, logger *slog.Logger) *WebChatAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebChatAdapter{
		port:     port,
		incoming: make(chan *channel.Message, 100),
		upgrader: websocket.Upgrader{
			// The widget is embedded on third-party pages.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:  make(map[string]*websocket.Conn),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

func (w *WebChatAdapter) Name() string {
	return "webchat"
}

func (w *WebChatAdapter) IsEnabled() bool {
	return w.port > 0
}

func (w *WebChatAdapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.wsHandler)
	server := &http.Server{Addr: ":" + strconv.Itoa(w.port), Handler: mux}

	go func() {
		w.logger.Info("webchat listening", "port", w.port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Error("webchat server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
		close(w.stopCh)
	}()
	return nil
}

func (w *WebChatAdapter) Stop() error {
	close(w.incoming)
	return nil
}

func (w *WebChatAdapter) SendMessage(userID string, resp *channel.Response) error {
	w.connMux.RLock()
	conn, exists := w.conns[userID]
	w.connMux.RUnlock()

	if !exists {
		// Visitor disconnected; the reply has nowhere to go.
		return nil
	}
	return conn.WriteJSON(WSMessage{Type: "message", Content: resp.Content})
}

func (w *WebChatAdapter) Incoming() <-chan *channel.Message {
	return w.incoming
}

func (w *WebChatAdapter) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	userName := r.URL.Query().Get("name")

	w.connMux.Lock()
	w.conns[userID] = conn
	w.connMux.Unlock()

	defer func() {
		w.connMux.Lock()
		delete(w.conns, userID)
		w.connMux.Unlock()
		conn.Close()
	}()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Debug("websocket read ended", "user", userID, "error", err)
			}
			return
		}
		if msg.Type != "message" || msg.Content == "" {
			continue
		}

		w.incoming <- &channel.Message{
			ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
			Channel:   "webchat",
			UserID:    userID,
			UserName:  userName,
			Content:   msg.Content,
			Metadata:  map[string]string{"remote_addr": r.RemoteAddr},
			Timestamp: time.Now().Unix(),
		}
	}
}
