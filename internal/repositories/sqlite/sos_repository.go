// Package sqlite stores SOS events in an embedded SQLite database for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sosline/internal/models"
	"sosline/internal/repositories/interfaces"
	"sosline/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sos_events (
		id                 TEXT PRIMARY KEY,
		originator_id      TEXT NOT NULL DEFAULT '',
		originator_contact TEXT NOT NULL,
		latitude           REAL NOT NULL DEFAULT 0,
		longitude          REAL NOT NULL DEFAULT 0,
		active             INTEGER NOT NULL DEFAULT 1,
		video_path         TEXT NOT NULL DEFAULT '',
		created_at         INTEGER NOT NULL,
		canceled_at        INTEGER,
		canceled_by        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sos_events_active_created ON sos_events (active, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sos_events_created ON sos_events (created_at DESC)`,
}

const selectColumns = `id, originator_id, originator_contact, latitude, longitude, active, video_path, created_at, canceled_at, canceled_by`

type sosRepository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer and :memory: databases are
	// per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

func NewSOSRepository(db *sql.DB) interfaces.SOSRepository {
	return &sosRepository{db: db}
}

func (r *sosRepository) Create(ctx context.Context, event *models.SOSEvent) error {
	id := primitive.NewObjectID()
	createdAt := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sos_events (id, originator_id, originator_contact, latitude, longitude, active, video_path, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		id.Hex(), event.OriginatorID, event.OriginatorContact, event.Latitude, event.Longitude,
		event.VideoPath, createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create sos event: %w", err)
	}

	event.ID = id
	event.CreatedAt = createdAt
	event.Active = true

	return nil
}

func (r *sosRepository) FindActive(ctx context.Context) ([]*models.SOSEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM sos_events WHERE active = 1 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to find active sos events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *sosRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM sos_events WHERE id = ?`, id.Hex())

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sos event: %w", err)
	}

	return event, nil
}

// SetCanceled is a conditional UPDATE guarded by active = 1; SQLite applies
// it atomically so only one caller sees a row affected.
func (r *sosRepository) SetCanceled(ctx context.Context, id primitive.ObjectID, canceledBy string) (*models.SOSEvent, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sos_events SET active = 0, canceled_at = ?, canceled_by = ? WHERE id = ? AND active = 1`,
		time.Now().UTC().UnixNano(), canceledBy, id.Hex(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sos event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sos event: %w", err)
	}
	if n == 0 {
		return nil, interfaces.ErrNotFound
	}

	return r.FindByID(ctx, id)
}

func (r *sosRepository) FindPage(ctx context.Context, page, size int) ([]*models.SOSEvent, int64, error) {
	params := &utils.PaginationParams{Page: page, PageSize: size}
	params.Normalize()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sos_events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sos events: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM sos_events ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		params.GetLimit(), params.GetSkip())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find sos events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.SOSEvent, error) {
	var (
		ev         models.SOSEvent
		id         string
		active     int
		createdAt  int64
		canceledAt sql.NullInt64
	)

	err := s.Scan(&id, &ev.OriginatorID, &ev.OriginatorContact, &ev.Latitude, &ev.Longitude,
		&active, &ev.VideoPath, &createdAt, &canceledAt, &ev.CanceledBy)
	if err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt sos event id %q: %w", id, err)
	}

	ev.ID = oid
	ev.Active = active == 1
	ev.CreatedAt = time.Unix(0, createdAt).UTC()
	if canceledAt.Valid {
		t := time.Unix(0, canceledAt.Int64).UTC()
		ev.CanceledAt = &t
	}

	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]*models.SOSEvent, error) {
	events := make([]*models.SOSEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode sos event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sos event rows failed: %w", err)
	}

	return events, nil
}
