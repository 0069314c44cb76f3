package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

type shared struct {
	db   *sql.DB
	refs int
}

var (
	mu        sync.Mutex
	instances = map[string]*shared{}
)

// Open returns the shared DuckDB handle for path, creating the file and its
// directory on first use. Every Open must be paired with a Close. An empty
// path opens an in-memory database that is never shared.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return initializeDuckDB("")
	}

	mu.Lock()
	defer mu.Unlock()
	if sh, ok := instances[path]; ok {
		sh.refs++
		return sh.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := initializeDuckDB(path)
	if err != nil {
		return nil, err
	}
	instances[path] = &shared{db: db, refs: 1}
	return db, nil
}

// Close releases one reference to path. The file lock is dropped with the
// last one, so other processes can open the file.
func Close(path string) error {
	mu.Lock()
	sh, ok := instances[path]
	if !ok {
		mu.Unlock()
		return nil
	}
	sh.refs--
	if sh.refs > 0 {
		mu.Unlock()
		return nil
	}
	delete(instances, path)
	mu.Unlock()
	return sh.db.Close()
}

func initializeDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB allows one writer per file
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open DuckDB at %s: %w", path, err)
	}
	return db, nil
}
