// Package storage provides the data persistence layer for splitwarden.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Ensure SQLiteStore implements service.Store.
var _ service.Store = (*SQLiteStore)(nil)

// SQLiteStore implements the service.Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite storage instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// itemRecord is the JSON column form of a model.Item. Prices are stored as
// strings so no decimal precision is lost in the database.
type itemRecord struct {
	Name    string   `json:"name"`
	Price   string   `json:"price"`
	Members []string `json:"members"`
}

func marshalItems(items []model.Item) (string, error) {
	records := make([]itemRecord, len(items))
	for i, item := range items {
		members := item.Members
		if members == nil {
			members = []string{}
		}
		records[i] = itemRecord{Name: item.Name, Price: item.Price.String(), Members: members}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}
	return string(data), nil
}

func unmarshalItems(data string) ([]model.Item, error) {
	var records []itemRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	items := make([]model.Item, len(records))
	for i, rec := range records {
		price, err := decimal.NewFromString(rec.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid item price %q: %w", rec.Price, err)
		}
		items[i] = model.Item{Name: rec.Name, Price: price, Members: rec.Members}
	}
	return items, nil
}

func marshalMemberSplits(splits map[string]decimal.Decimal) (string, error) {
	out := make(map[string]string, len(splits))
	for member, amount := range splits {
		out[member] = amount.String()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal member splits: %w", err)
	}
	return string(data), nil
}

func unmarshalMemberSplits(data string) (map[string]decimal.Decimal, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal member splits: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(raw))
	for member, amount := range raw {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid member split amount %q: %w", amount, err)
		}
		out[member] = d
	}
	return out, nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal string list: %w", err)
	}
	return out, nil
}
