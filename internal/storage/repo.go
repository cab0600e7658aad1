package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps storage faults on read paths so callers can
	// fail authorization closed instead of guessing at the cause.
	ErrUnavailable = errors.New("storage unavailable")
)

// ListAllowedGroups returns the current allow-list membership. It is read
// on every authorization check; there is no caching layer in front of it.
func (s *Store) ListAllowedGroups(ctx context.Context) (map[int64]struct{}, error) {
	q := s.sql.Select("group_id").From("allowed_groups")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build allowed groups query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list allowed groups: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan allowed group row: %w", ErrUnavailable, err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate allowed group rows: %w", ErrUnavailable, err)
	}
	return out, nil
}

func (s *Store) ListAllowedGroupDetails(ctx context.Context) ([]AllowedGroup, error) {
	q := s.sql.Select("group_id", "added_by", "added_at").
		From("allowed_groups").
		OrderBy("added_at ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build allowed group details query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list allowed group details: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]AllowedGroup, 0)
	for rows.Next() {
		var g AllowedGroup
		if err := rows.Scan(&g.GroupID, &g.AddedBy, &g.AddedAt); err != nil {
			return nil, fmt.Errorf("%w: scan allowed group details row: %w", ErrUnavailable, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate allowed group details rows: %w", ErrUnavailable, err)
	}
	return out, nil
}

// AddAllowedGroup grants a group. Granting an already-present group
// refreshes added_by and added_at instead of erroring.
func (s *Store) AddAllowedGroup(ctx context.Context, groupID, addedBy int64) error {
	q := s.sql.Insert("allowed_groups").
		Columns("group_id", "added_by", "added_at").
		Values(groupID, addedBy, nowExpr(s.driver)).
		Suffix("ON CONFLICT(group_id) DO UPDATE SET added_by=excluded.added_by, added_at=excluded.added_at")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build add allowed group query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("add allowed group: %w", err)
	}
	return nil
}

// RemoveAllowedGroup revokes a group. The bool reports whether a row was
// actually deleted, so the caller can tell "revoked" from "was never
// granted".
func (s *Store) RemoveAllowedGroup(ctx context.Context, groupID int64) (bool, error) {
	q := s.sql.Delete("allowed_groups").Where(sq.Eq{"group_id": groupID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build remove allowed group query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, fmt.Errorf("remove allowed group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove allowed group rows affected: %w", err)
	}
	return n > 0, nil
}

// RecordUsage appends one audit row and, for group actions, bumps the
// group activity summary in the same transaction. Callers are expected to
// treat a failure here as best-effort: log it and move on.
func (s *Store) RecordUsage(ctx context.Context, rec UsageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin usage tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := s.sql.Insert("user_stats").
		Columns("user_id", "username", "first_name", "group_id", "command", "created_at").
		Values(rec.UserID, rec.Username, rec.FirstName, rec.GroupID, rec.Command, nowExpr(s.driver))
	sqlStr, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	if rec.GroupID != nil {
		bump := s.sql.Insert("group_stats").
			Columns("group_id", "total_commands", "last_active").
			Values(*rec.GroupID, 1, nowExpr(s.driver)).
			Suffix("ON CONFLICT(group_id) DO UPDATE SET total_commands=group_stats.total_commands+1, last_active=excluded.last_active")
		sqlStr, args, err := bump.ToSql()
		if err != nil {
			return fmt.Errorf("build group stats upsert query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("upsert group stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage tx: %w", err)
	}
	return nil
}

func (s *Store) GetGroupStats(ctx context.Context, groupID int64) (GroupStats, error) {
	q := s.sql.Select("group_id", "total_commands", "last_active").
		From("group_stats").
		Where(sq.Eq{"group_id": groupID})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return GroupStats{}, fmt.Errorf("build group stats query: %w", err)
	}

	var gs GroupStats
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&gs.GroupID, &gs.TotalCommands, &gs.LastActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GroupStats{}, ErrNotFound
		}
		return GroupStats{}, fmt.Errorf("%w: get group stats: %w", ErrUnavailable, err)
	}
	return gs, nil
}
