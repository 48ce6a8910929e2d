package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores intakes in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db db) *PostgresRepository {
	if db == nil {
		panic("records: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const selectColumns = `
	id, request_id, source, status, raw_text, ocr_confidence,
	date_phrase, time_phrase, department_raw, entities_confidence,
	appointment_date, appointment_time, tz, department, normalization_confidence,
	reasons, archive_key, created_at`

// Save inserts rec and fills in the database timestamp.
func (r *PostgresRepository) Save(ctx context.Context, rec *Record) error {
	prepare(rec)
	reasons := rec.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	query := `
		INSERT INTO intakes (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		rec.ID,
		rec.RequestID,
		rec.Source,
		rec.Status,
		rec.RawText,
		rec.OCRConfidence,
		rec.DatePhrase,
		rec.TimePhrase,
		rec.DepartmentRaw,
		rec.EntitiesConfidence,
		rec.Date,
		rec.Time,
		rec.TZ,
		rec.Department,
		rec.NormalizationConfidence,
		reasons,
		rec.ArchiveKey,
		rec.CreatedAt,
	).Scan(&rec.CreatedAt); err != nil {
		return fmt.Errorf("records: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches one intake.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + selectColumns + ` FROM intakes WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("records: select failed: %w", err)
	}
	return rec, nil
}

// List returns intakes newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM intakes
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, filter.Status, filter.limit(), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("records: list failed: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("records: scan failed: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list failed: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	if err := row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.Source,
		&rec.Status,
		&rec.RawText,
		&rec.OCRConfidence,
		&rec.DatePhrase,
		&rec.TimePhrase,
		&rec.DepartmentRaw,
		&rec.EntitiesConfidence,
		&rec.Date,
		&rec.Time,
		&rec.TZ,
		&rec.Department,
		&rec.NormalizationConfidence,
		&rec.Reasons,
		&rec.ArchiveKey,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
