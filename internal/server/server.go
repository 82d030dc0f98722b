package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"settingsync/internal/core"
)

// Server manages the HTTP and WebSocket services.
type Server struct {
	Hub        *Hub
	httpServer *http.Server

	snapshot       func() core.Snapshot
	commands       core.CommandChannel
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewServer creates a server. snapshot is sent to every client on connect;
// commands read from clients are forwarded to the commands channel.
// Call Start to run the hub.
func NewServer(snapshot func() core.Snapshot, commands core.CommandChannel, port string, allowedOrigins []string) *Server {
	s := &Server{
		Hub:            NewHub(),
		snapshot:       snapshot,
		commands:       commands,
		allowedOrigins: allowedOrigins,
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients such as the control process send no Origin.
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			log.Printf("[Server] WebSocket connection blocked: Origin '%s' not in allowed list.", origin)
			return false
		},
	}

	s.httpServer = &http.Server{Addr: ":" + port, Handler: s.Handler()}
	return s
}

// Start runs the hub until ctx ends.
func (s *Server) Start(ctx context.Context) {
	go s.Hub.Run(ctx)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/settings", s.handleSettings)
	return mux
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		log.Printf("[Server] Encoding settings failed: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] WebSocket upgrade error: %v", err)
		return
	}

	// The snapshot goes out before the client is registered, so no broadcast
	// can interleave with it.
	if err := conn.WriteJSON(NewMessage(MsgSettingsState, s.snapshot())); err != nil {
		log.Printf("[Server] Initial snapshot failed: %v", err)
		conn.Close()
		return
	}

	c := s.Hub.add(conn)
	defer s.Hub.remove(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("[Server] Error unmarshalling command from %s: %v", c.id, err)
			continue
		}
		if cmd.Type == "" {
			log.Printf("[Server] Command without type from %s ignored.", c.id)
			continue
		}
		s.commands <- core.Command{Type: core.CommandType(cmd.Type), Payload: cmd.Payload}
	}
}
