package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// User represents a user account
type User struct {
	ID           string
	Username     string
	PasswordHash string
	APIKey       string
	CreatedAt    time.Time
}

// Client represents a machine that uploads datasets
type Client struct {
	ID         string
	UserID     string
	Name       string
	LastSyncAt *time.Time
	CreatedAt  time.Time
}

// Dataset is one client's uploaded usage export. Uploads replace the
// previous document wholesale, so each client contributes exactly one
// dataset to the user's merged view.
type Dataset struct {
	UserID     string
	ClientID   string
	Document   []byte
	Days       int
	RangeStart string
	RangeEnd   string
	UpdatedAt  time.Time
}

// Open opens a SQLite database connection
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors under concurrent load
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// Migrate creates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		api_key TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		last_sync_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS datasets (
		user_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		document BLOB NOT NULL,
		days INTEGER NOT NULL,
		range_start TEXT NOT NULL,
		range_end TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, client_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_clients_user ON clients(user_id);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expiry);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateUser creates a new user
func (db *DB) CreateUser(user *User) error {
	_, err := db.Exec(
		`INSERT INTO users (id, username, password_hash, api_key, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.APIKey, user.CreatedAt,
	)
	return err
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(username string) (*User, error) {
	user := &User{}
	err := db.QueryRow(
		`SELECT id, username, password_hash, api_key, created_at
		 FROM users WHERE username = ?`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.APIKey, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(id string) (*User, error) {
	user := &User{}
	err := db.QueryRow(
		`SELECT id, username, password_hash, api_key, created_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.APIKey, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByAPIKey retrieves a user by API key
func (db *DB) GetUserByAPIKey(apiKey string) (*User, error) {
	user := &User{}
	err := db.QueryRow(
		`SELECT id, username, password_hash, api_key, created_at
		 FROM users WHERE api_key = ?`,
		apiKey,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.APIKey, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetOrCreateClient gets an existing client or creates a new one
func (db *DB) GetOrCreateClient(userID, clientID, clientName string) (*Client, error) {
	client := &Client{}
	var lastSyncAt sql.NullTime
	err := db.QueryRow(
		`SELECT id, user_id, name, last_sync_at, created_at FROM clients WHERE id = ? AND user_id = ?`,
		clientID, userID,
	).Scan(&client.ID, &client.UserID, &client.Name, &lastSyncAt, &client.CreatedAt)

	if err == nil {
		if lastSyncAt.Valid {
			client.LastSyncAt = &lastSyncAt.Time
		}
		return client, nil
	}

	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	_, err = db.Exec(
		`INSERT INTO clients (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		clientID, userID, clientName, now,
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		ID:        clientID,
		UserID:    userID,
		Name:      clientName,
		CreatedAt: now,
	}, nil
}

// UpdateClientLastSync updates the last sync time for a client
func (db *DB) UpdateClientLastSync(clientID string, lastSyncAt time.Time) error {
	_, err := db.Exec(`UPDATE clients SET last_sync_at = ? WHERE id = ?`, lastSyncAt, clientID)
	return err
}

// GetClientSyncStatus returns the last sync time for a client
func (db *DB) GetClientSyncStatus(userID, clientID string) (*time.Time, error) {
	var lastSyncAt sql.NullTime
	err := db.QueryRow(
		`SELECT last_sync_at FROM clients WHERE id = ? AND user_id = ?`,
		clientID, userID,
	).Scan(&lastSyncAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !lastSyncAt.Valid {
		return nil, nil
	}
	return &lastSyncAt.Time, nil
}

// SaveDataset replaces a client's uploaded dataset
func (db *DB) SaveDataset(ds *Dataset) error {
	_, err := db.Exec(`
		INSERT INTO datasets (user_id, client_id, document, days, range_start, range_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, client_id) DO UPDATE SET
			document = excluded.document,
			days = excluded.days,
			range_start = excluded.range_start,
			range_end = excluded.range_end,
			updated_at = excluded.updated_at
	`, ds.UserID, ds.ClientID, ds.Document, ds.Days, ds.RangeStart, ds.RangeEnd, ds.UpdatedAt)
	return err
}

// GetDatasets returns all dataset documents for a user, one per client
func (db *DB) GetDatasets(userID string) ([]Dataset, error) {
	rows, err := db.Query(`
		SELECT user_id, client_id, document, days, range_start, range_end, updated_at
		FROM datasets WHERE user_id = ?
		ORDER BY client_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var ds Dataset
		if err := rows.Scan(&ds.UserID, &ds.ClientID, &ds.Document, &ds.Days,
			&ds.RangeStart, &ds.RangeEnd, &ds.UpdatedAt); err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// ListClients returns a user's clients newest-synced first
func (db *DB) ListClients(userID string) ([]Client, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, last_sync_at, created_at
		FROM clients WHERE user_id = ?
		ORDER BY last_sync_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		var lastSyncAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &lastSyncAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		if lastSyncAt.Valid {
			c.LastSyncAt = &lastSyncAt.Time
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
