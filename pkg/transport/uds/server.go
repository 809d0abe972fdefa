package uds

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
)

// HandlerFunc processes a request and returns a response payload or error.
type HandlerFunc func(ctx context.Context, req Message) (any, error)

type peer struct {
	conn net.Conn
	mu   sync.Mutex
}

func (p *peer) write(line []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.conn.Write(line)
	return err
}

// Server listens on a Unix domain socket and dispatches NDJSON requests.
type Server struct {
	socketPath string
	listener   net.Listener
	handlers   map[string]HandlerFunc
	peers      map[net.Conn]*peer
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewServer creates a server for socketPath.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handlers:   make(map[string]HandlerFunc),
		peers:      make(map[net.Conn]*peer),
		logger:     logger,
	}
}

// Handle registers a handler for a method. Register before Start.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// Start listens until ctx is cancelled. A stale socket file is removed first.
func (s *Server) Start(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("server listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", "err", err)
			continue
		}
		p := &peer{conn: conn}
		s.mu.Lock()
		s.peers[conn] = p
		s.mu.Unlock()
		go s.serve(ctx, p)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Broadcast sends an event to all connected clients.
func (s *Server) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("broadcast marshal error", "err", err)
		return
	}
	line := append(data, '\n')

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.peers {
		if err := p.write(line); err != nil {
			s.logger.Warn("broadcast write error", "err", err)
		}
	}
}

// Shutdown closes the listener and every client, then removes the socket.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.peers {
		conn.Close()
	}
	s.mu.Unlock()
	os.Remove(s.socketPath)
}

func (s *Server) serve(ctx context.Context, p *peer) {
	defer func() {
		p.conn.Close()
		s.mu.Lock()
		delete(s.peers, p.conn)
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.logger.Warn("invalid message", "err", err)
			continue
		}
		if msg.Type != MsgTypeReq {
			continue
		}
		s.reply(p, s.dispatch(ctx, msg))
	}
}

func (s *Server) dispatch(ctx context.Context, msg Message) (resp Message) {
	handler, ok := s.handlers[msg.Method]
	if !ok {
		return NewErrorResponse(msg.ID, msg.Method, fmt.Sprintf("unknown method: %s", msg.Method))
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "method", msg.Method, "panic", r)
			resp = NewErrorResponse(msg.ID, msg.Method, "internal error")
		}
	}()

	result, err := handler(ctx, msg)
	if err != nil {
		return NewErrorResponse(msg.ID, msg.Method, err.Error())
	}
	resp, err = NewResponse(msg.ID, msg.Method, result)
	if err != nil {
		return NewErrorResponse(msg.ID, msg.Method, err.Error())
	}
	return resp
}

func (s *Server) reply(p *peer, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal response error", "err", err)
		return
	}
	if err := p.write(append(data, '\n')); err != nil {
		s.logger.Warn("write response error", "err", err)
	}
}
