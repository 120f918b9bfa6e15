package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

// validateSQLiteIntegrity runs a quick PRAGMA integrity_check before opening
// a database for real use, guarding against trusting a corrupted on-disk
// file.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// openSQLite opens a WAL-mode, single-writer SQLite database at path (or an
// in-memory database if path is empty), auto-clearing a corrupted file
// rather than failing startup.
func openSQLite(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		if err := validateSQLiteIntegrity(path); err != nil {
			slog.Warn("store_db_corrupted", slog.String("path", path), slog.String("error", err.Error()))
			_ = os.Remove(path)
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return db, nil
}

// filterSQL renders a FilterSet as a parameterized WHERE clause (without the
// leading "WHERE"). An empty FilterSet renders "1=1".
func filterSQL(filters FilterSet) (string, []any) {
	if len(filters) == 0 {
		return "1=1", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case FilterEq:
			clauses = append(clauses, f.Column+" = ?")
			args = append(args, f.Value)
		case FilterNotEq:
			clauses = append(clauses, f.Column+" != ?")
			args = append(args, f.Value)
		case FilterContains:
			clauses = append(clauses, f.Column+" LIKE ?")
			args = append(args, "%"+fmt.Sprint(f.Value)+"%")
		case FilterGte:
			clauses = append(clauses, f.Column+" >= ?")
			args = append(args, f.Value)
		case FilterLte:
			clauses = append(clauses, f.Column+" <= ?")
			args = append(args, f.Value)
		case FilterIn:
			placeholders, inArgs := inClause(f.Value)
			if placeholders == "" {
				clauses = append(clauses, "0")
				continue
			}
			clauses = append(clauses, f.Column+" IN ("+placeholders+")")
			args = append(args, inArgs...)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func inClause(value any) (string, []any) {
	var args []any
	switch v := value.(type) {
	case []uint64:
		for _, x := range v {
			args = append(args, x)
		}
	case []string:
		for _, x := range v {
			args = append(args, x)
		}
	default:
		return "", nil
	}
	if len(args) == 0 {
		return "", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	return placeholders, args
}
