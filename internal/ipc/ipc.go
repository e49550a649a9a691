// Package ipc is the daemon's control socket: one JSON request and one JSON
// reply per connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	log "log/slog"
)

const SocketPath = "/tmp/luna.sock"

const (
	CmdTrigger = "trigger"
	CmdAsk     = "ask"
	CmdSay     = "say"
	CmdReset   = "reset"

	// CmdTranscribe reads an audio file on the daemon's host.
	CmdTranscribe = "transcribe"
)

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type ControlReply struct {
	OK    bool   `json:"ok"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

func Ok(reply string) ControlReply { return ControlReply{OK: true, Reply: reply} }

func Fail(format string, args ...any) ControlReply {
	return ControlReply{Error: fmt.Sprintf(format, args...)}
}

type Handler func(ctx context.Context, msg ControlMessage) ControlReply

type Server struct {
	path    string
	ln      net.Listener
	handler Handler
	stop    func() bool
	wg      sync.WaitGroup
}

// StartServer listens on path, replacing a stale socket, and serves until
// ctx ends. Close waits for open connections.
func StartServer(ctx context.Context, path string, handler Handler) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln, handler: handler}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.accept(ctx)
	}()

	s.stop = context.AfterFunc(ctx, func() { ln.Close() })

	log.Debug("Control socket ready", "path", path)
	return s, nil
}

func (s *Server) accept(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Fail("bad request: %v", err))
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd)
	reply := s.handler(ctx, msg)

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Debug("Control reply not delivered", "err", err)
	}
}

// Close stops accepting, waits for in-flight requests and removes the socket.
func (s *Server) Close() error {
	s.stop()
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

// SendCommand delivers one message and waits for the reply.
func SendCommand(ctx context.Context, path string, msg ControlMessage) (ControlReply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return ControlReply{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return ControlReply{}, fmt.Errorf("send: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK && reply.Error != "" {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
