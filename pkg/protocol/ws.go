package protocol

import (
	"context"
	"net/http"
	"sync"
	"time"

	log "log/slog"

	ws "github.com/gorilla/websocket"
)

// WebSocket reads the event stream and redials when the daemon goes away.
type WebSocket struct {
	mu     sync.Mutex
	conn   *ws.Conn
	url    string
	header http.Header
	reconn time.Duration
}

func NewWebSocket(ctx context.Context, url string, header http.Header, reconn time.Duration) (*WebSocket, error) {
	log.Debug("Init websocket", "url", url)

	web := &WebSocket{
		url:    url,
		header: header,
		reconn: reconn,
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		log.Error("Failed to dial url", "url", url, "err", err)
		return nil, err
	}
	web.conn = conn

	return web, nil
}

type IncomeKind uint

const (
	ConnClosed IncomeKind = iota
	ReadFailure
	BadMessage
	ReadOK
)

type Income struct {
	Kind  IncomeKind
	Event Event
	Err   error
}

func (web *WebSocket) current() *ws.Conn {
	web.mu.Lock()
	defer web.mu.Unlock()
	return web.conn
}

func (web *WebSocket) Read() Income {
	_, msg, err := web.current().ReadMessage()
	if err != nil {
		if IsClosed(err) {
			return Income{Kind: ConnClosed, Err: err}
		}
		return Income{Kind: ReadFailure, Err: err}
	}

	log.Debug("Read ws", "msg", string(msg))

	ev, err := ParseEvent(msg)
	if err != nil {
		return Income{Kind: BadMessage, Err: err}
	}
	return Income{Kind: ReadOK, Event: ev}
}

// TryReconn dials until it succeeds or ctx ends.
func (web *WebSocket) TryReconn(ctx context.Context) error {
	web.current().Close()
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, web.url, web.header)
		if err == nil {
			web.mu.Lock()
			web.conn = conn
			web.mu.Unlock()
			return nil
		}
		log.Debug("Reconnect failed", "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(web.reconn):
		}
	}
}

func (web *WebSocket) Close() error {
	return web.current().Close()
}

func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
