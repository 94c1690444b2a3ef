package main

import (
	"log"
	"net/http"
	"os"
)

const (
	listenAddr = ":8080"
	uploadsDir = "uploads"
)

func main() {
	// An optional SQLite path makes history and users durable; without
	// one everything lives in memory.
	var users UserStore
	var messages MessageStore

	if len(os.Args) > 1 {
		store, err := NewSQLStore(os.Args[1])
		if err != nil {
			log.Fatal("Failed to open database:", err)
		}
		defer store.Close()
		users, messages = store, store
	} else {
		store := NewMemStore()
		users, messages = store, store
	}

	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		log.Fatal("Failed to create uploads directory:", err)
	}

	registry := NewRegistry()
	server := NewServer(registry, users, messages, uploadsDir)

	mux := server.RegisterRoutes()
	handler := corsMiddleware(mux)

	log.Println("Chat server starting on", listenAddr)
	log.Println("WebSocket endpoint: ws://localhost" + listenAddr + "/ws")
	log.Println("Upload endpoint: http://localhost" + listenAddr + "/api/upload")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal("Server failed:", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
