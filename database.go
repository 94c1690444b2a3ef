package main

import (
	"database/sql"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore is the durable UserStore/MessageStore implementation, backed
// by SQLite.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dbPath string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}

	// Presence is meaningless across restarts; clear stale online rows
	// left behind by a crash.
	if _, err := db.Exec("UPDATE users SET status = 'offline', is_online = 0"); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'offline',
		is_online BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		sender VARCHAR(50) NOT NULL,
		timestamp VARCHAR(30) NOT NULL,
		file_url TEXT,
		file_name TEXT,
		file_size TEXT,
		file_type TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) GetOrCreateUser(username string) (*User, error) {
	user, err := s.getUserByUsername(username)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// INSERT OR IGNORE keeps a concurrent first join from failing on the
	// unique username constraint; whoever lost the race reads the row back.
	_, err = s.db.Exec(
		"INSERT OR IGNORE INTO users (id, username, status, is_online) VALUES (?, ?, 'offline', 0)",
		uuid.NewString(), username,
	)
	if err != nil {
		return nil, err
	}

	return s.getUserByUsername(username)
}

func (s *SQLStore) getUserByUsername(username string) (*User, error) {
	user := &User{}
	err := s.db.QueryRow(
		"SELECT id, username, status, is_online, created_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &user.Status, &user.IsOnline, &user.CreatedAt)

	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLStore) SetOnlineStatus(username string, online bool) (*User, error) {
	status := StatusOffline
	if online {
		status = StatusOnline
	}

	res, err := s.db.Exec(
		"UPDATE users SET status = ?, is_online = ? WHERE username = ?",
		string(status), online, username,
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}

	return s.getUserByUsername(username)
}

func (s *SQLStore) ListUsers() ([]User, error) {
	rows, err := s.db.Query(
		"SELECT id, username, status, is_online, created_at FROM users ORDER BY created_at ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var user User
		err := rows.Scan(&user.ID, &user.Username, &user.Status, &user.IsOnline, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLStore) AppendMessage(nm NewMessage) (*Message, error) {
	result, err := s.db.Exec(`
		INSERT INTO messages (content, sender, timestamp, file_url, file_name, file_size, file_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nm.Content, nm.Sender, nm.Timestamp, nullable(nm.FileURL), nullable(nm.FileName), nullable(nm.FileSize), nullable(nm.FileType))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.getMessageByID(int(id))
}

func (s *SQLStore) getMessageByID(messageID int) (*Message, error) {
	message := &Message{}
	var fileURL, fileName, fileSize, fileType sql.NullString
	err := s.db.QueryRow(`
		SELECT id, content, sender, timestamp, file_url, file_name, file_size, file_type
		FROM messages WHERE id = ?
	`, messageID).Scan(&message.ID, &message.Content, &message.Sender, &message.Timestamp,
		&fileURL, &fileName, &fileSize, &fileType)

	if err != nil {
		return nil, err
	}

	message.FileURL = fileURL.String
	message.FileName = fileName.String
	message.FileSize = fileSize.String
	message.FileType = fileType.String
	return message, nil
}

func (s *SQLStore) RecentMessages(limit int) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, content, sender, timestamp, file_url, file_name, file_size, file_type
		FROM messages
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var message Message
		var fileURL, fileName, fileSize, fileType sql.NullString
		err := rows.Scan(&message.ID, &message.Content, &message.Sender, &message.Timestamp,
			&fileURL, &fileName, &fileSize, &fileType)
		if err != nil {
			return nil, err
		}
		message.FileURL = fileURL.String
		message.FileName = fileName.String
		message.FileSize = fileSize.String
		message.FileType = fileType.String
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
