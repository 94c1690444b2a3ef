package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxUploadSize = 10 << 20 // 10 MB

// handleUpload turns a completed multipart upload into a persisted
// file-bearing message and broadcasts it exactly like a text message.
// Nothing is persisted or broadcast on any failure.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		respondError(w, "Username is required", http.StatusBadRequest)
		return
	}

	// Stored under a generated name so concurrent uploads of the same
	// filename cannot overwrite each other.
	storedName := uuid.NewString() + filepath.Ext(header.Filename)
	storedPath := filepath.Join(s.uploadsDir, storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		log.Printf("upload: create %s: %v", storedPath, err)
		respondError(w, "Error uploading file", http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storedPath)
		log.Printf("upload: write %s: %v", storedPath, err)
		respondError(w, "Error uploading file", http.StatusInternalServerError)
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(storedPath)
		log.Printf("upload: close %s: %v", storedPath, err)
		respondError(w, "Error uploading file", http.StatusInternalServerError)
		return
	}

	fileURL := "/uploads/" + storedName
	fileType := header.Header.Get("Content-Type")

	saved, err := s.messages.AppendMessage(NewMessage{
		Content:   fmt.Sprintf("Shared a file: %s", header.Filename),
		Sender:    username,
		Timestamp: nowTimestamp(),
		FileURL:   fileURL,
		FileName:  header.Filename,
		FileSize:  formatFileSize(header.Size),
		FileType:  fileType,
	})
	if err != nil {
		os.Remove(storedPath)
		log.Printf("upload: persist message from %q: %v", username, err)
		respondError(w, "Error uploading file", http.StatusInternalServerError)
		return
	}

	log.Printf("file upload from %s: %s", username, header.Filename)
	s.registry.Broadcast(MessageEvent(*saved), "")

	respondJSON(w, map[string]string{
		"message": "File uploaded successfully",
		"fileUrl": fileURL,
	})
}

func formatFileSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	} else if bytes < 1048576 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/1048576)
}
