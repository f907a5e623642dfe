package store

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"crmpulse/internal/domain"
)

// InitDB opens the SQLite database at path and ensures the complaints schema.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS complaints (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		complaint_text TEXT NOT NULL,
		category       TEXT NOT NULL,
		sentiment      TEXT NOT NULL,
		rating         INTEGER NOT NULL,
		confidence     REAL NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_complaints_created_at ON complaints(created_at);
	CREATE INDEX IF NOT EXISTS idx_complaints_category ON complaints(category);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// InsertComplaint stores one classified complaint and returns its assigned id.
func InsertComplaint(db *sql.DB, r domain.ComplaintRecord) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := db.Exec(
		`INSERT INTO complaints (complaint_text, category, sentiment, rating, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Text, r.Category, string(r.Sentiment), r.Rating, r.Confidence, createdAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertComplaints stores a batch in one transaction and returns how many
// rows made it in before any failure.
func InsertComplaints(db *sql.DB, records []domain.ComplaintRecord) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO complaints (complaint_text, category, sentiment, rating, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(r.Text, r.Category, string(r.Sentiment), r.Rating, r.Confidence, createdAt); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}

// GetAllComplaints returns the full table ordered by created_at then id. This
// is the single fetch a snapshot is computed from.
func GetAllComplaints(db *sql.DB) ([]domain.ComplaintRecord, error) {
	rows, err := db.Query(
		`SELECT id, complaint_text, category, sentiment, rating, confidence, created_at
		 FROM complaints ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// GetRecentComplaints returns the newest records first, for report samples.
func GetRecentComplaints(db *sql.DB, limit int) ([]domain.ComplaintRecord, error) {
	rows, err := db.Query(
		`SELECT id, complaint_text, category, sentiment, rating, confidence, created_at
		 FROM complaints ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func CountComplaints(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM complaints`).Scan(&count)
	return count, err
}

func scanComplaints(rows *sql.Rows) ([]domain.ComplaintRecord, error) {
	var records []domain.ComplaintRecord
	for rows.Next() {
		var r domain.ComplaintRecord
		var sentiment string
		if err := rows.Scan(&r.ID, &r.Text, &r.Category, &sentiment, &r.Rating, &r.Confidence, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Sentiment = domain.Sentiment(sentiment)
		records = append(records, r)
	}
	return records, rows.Err()
}
