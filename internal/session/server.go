package session

import (
	"net"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ehrlich-b/wscode/internal/logger"
)

const maxFrameBytes = 32 << 20

// Server is the accept loop: one HTTP listener serving a single
// WebSocket endpoint, each accepted connection becoming one Session.
type Server struct {
	ws       *Workspace
	listener net.Listener
}

func NewServer(ws *Workspace) *Server {
	return &Server{ws: ws}
}

func (srv *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", srv.handleWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv.listener = ln

	logger.Info("session: listening", "addr", addr)
	return http.Serve(ln, mux)
}

func (srv *Server) Close() error {
	if srv.listener != nil {
		return srv.listener.Close()
	}
	return nil
}

func (srv *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		logger.Warn("session: accept failed", "err", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)
	defer conn.CloseNow()

	sess := NewSession(srv.ws, conn)
	ctx := r.Context()
	if err := sess.Run(ctx); err != nil {
		logger.Debug("session: closed", "err", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
