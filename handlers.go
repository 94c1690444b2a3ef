package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

// maxHistoryQuery caps how much history the REST read hands out at once.
const maxHistoryQuery = 100

type Server struct {
	registry   *Registry
	users      UserStore
	messages   MessageStore
	uploadsDir string
}

func NewServer(registry *Registry, users UserStore, messages MessageStore, uploadsDir string) *Server {
	return &Server{
		registry:   registry,
		users:      users,
		messages:   messages,
		uploadsDir: uploadsDir,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/users", s.handleUsers)

	// Uploaded files are served back under the same URL path stored in
	// their message's fileUrl.
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))

	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s.registry, s.users, s.messages)
	go client.Run()
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := historyLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
			if limit > maxHistoryQuery {
				limit = maxHistoryQuery
			}
		}
	}

	messages, err := s.messages.RecentMessages(limit)
	if err != nil {
		respondError(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"messages": messages,
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	users, err := s.users.ListUsers()
	if err != nil {
		respondError(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"users": users,
	})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
