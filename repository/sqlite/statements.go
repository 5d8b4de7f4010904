package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nijaru/yt-themes/errors"
)

const (
	upsertRunQuery = `
        INSERT INTO runs (
            id, themes, subtitles_path, save_path, status,
            scores, error, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            scores = excluded.scores,
            error = excluded.error,
            updated_at = excluded.updated_at
    `

	getRunQuery = `
        SELECT id, themes, subtitles_path, save_path, status,
               scores, error, created_at, updated_at
        FROM runs WHERE id = ?
    `

	listRunsQuery = `
        SELECT id, themes, subtitles_path, save_path, status,
               scores, error, created_at, updated_at
        FROM runs ORDER BY created_at DESC, id LIMIT ?
    `
)

type PreparedStatements struct {
	upsert *sql.Stmt
	get    *sql.Stmt
	list   *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	var err error

	if stmts.upsert, err = db.PrepareContext(ctx, upsertRunQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare upsert statement")
	}

	if stmts.get, err = db.PrepareContext(ctx, getRunQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare get statement")
	}

	if stmts.list, err = db.PrepareContext(ctx, listRunsQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare list statement")
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	for _, stmt := range [...]*sql.Stmt{stmts.upsert, stmts.get, stmts.list} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}
	return nil
}
