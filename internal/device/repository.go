package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository persists media player records.
type Repository interface {
	// GetByIdentity returns ErrDeviceNotFound when no record exists.
	GetByIdentity(ctx context.Context, identity string) (*MediaPlayer, error)

	// List returns every record ordered by identity.
	List(ctx context.Context) ([]MediaPlayer, error)

	// Create returns ErrDeviceExists when the identity is taken.
	Create(ctx context.Context, player *MediaPlayer) error

	// Delete returns ErrDeviceNotFound when no record exists.
	Delete(ctx context.Context, identity string) error
}

// SQLiteRepository implements Repository on the media_players table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectPlayer = `SELECT identity, name, discovery_topic, created_at FROM media_players`

// GetByIdentity retrieves one record.
func (r *SQLiteRepository) GetByIdentity(ctx context.Context, identity string) (*MediaPlayer, error) {
	row := r.db.QueryRowContext(ctx, selectPlayer+` WHERE identity = ?`, identity)

	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying media player: %w", err)
	}
	return player, nil
}

// List retrieves all records.
func (r *SQLiteRepository) List(ctx context.Context) ([]MediaPlayer, error) {
	rows, err := r.db.QueryContext(ctx, selectPlayer+` ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("querying media players: %w", err)
	}
	defer rows.Close()

	var players []MediaPlayer
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning media player: %w", err)
		}
		players = append(players, *player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating media players: %w", err)
	}
	return players, nil
}

// Create inserts a record. CreatedAt is set when zero.
func (r *SQLiteRepository) Create(ctx context.Context, player *MediaPlayer) error {
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media_players (identity, name, discovery_topic, created_at) VALUES (?, ?, ?, ?)`,
		player.Identity,
		player.Name,
		player.DiscoveryTopic,
		player.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return ErrDeviceExists
	}
	if err != nil {
		return fmt.Errorf("inserting media player: %w", err)
	}
	return nil
}

// Delete removes a record.
func (r *SQLiteRepository) Delete(ctx context.Context, identity string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media_players WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("deleting media player: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(s scanner) (*MediaPlayer, error) {
	var p MediaPlayer
	var createdAt string
	if err := s.Scan(&p.Identity, &p.Name, &p.DiscoveryTopic, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // Format is controlled
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
