package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nijaru/yt-themes/errors"
	"github.com/nijaru/yt-themes/models"
)

const (
	maxSaveAttempts = 3
	defaultListSize = 20
	maxListSize     = 100
)

type Repository struct {
	db         *DB
	retryDelay time.Duration
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db, retryDelay: time.Second}
}

func (r *Repository) Save(ctx context.Context, run *models.Run) error {
	const op = "SQLiteRepository.Save"

	scores, err := json.Marshal(run.Scores)
	if err != nil {
		return errors.Internal(op, err, "Failed to encode scores")
	}

	backoff := retry.WithMaxRetries(maxSaveAttempts-1, retry.NewExponential(r.retryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.save(ctx, run, string(scores)); err != nil {
			if isLockError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to save run")
	}
	return nil
}

func (r *Repository) save(ctx context.Context, run *models.Run, scores string) error {
	_, err := r.db.statements.upsert.ExecContext(ctx,
		run.ID,
		strings.Join(run.Themes, ","),
		run.SubtitlesPath,
		run.SavePath,
		string(run.Status),
		scores,
		run.Error,
		run.CreatedAt.UTC(),
		run.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repository) Find(ctx context.Context, id string) (*models.Run, error) {
	const op = "SQLiteRepository.Find"

	run, err := scanRun(r.db.statements.get.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Run not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query run")
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	const op = "SQLiteRepository.List"

	if limit <= 0 {
		limit = defaultListSize
	}
	if limit > maxListSize {
		limit = maxListSize
	}

	rows, err := r.db.statements.list.QueryContext(ctx, limit)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to list runs")
	}
	defer rows.Close()

	runs := make([]*models.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "Failed to read run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to list runs")
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*models.Run, error) {
	run := &models.Run{}
	var themes, status, scores string

	err := row.Scan(
		&run.ID,
		&themes,
		&run.SubtitlesPath,
		&run.SavePath,
		&status,
		&scores,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = models.Status(status)
	if themes != "" {
		run.Themes = strings.Split(themes, ",")
	}
	if scores != "" {
		if err := json.Unmarshal([]byte(scores), &run.Scores); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func isLockError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
