package repository

import (
	"context"

	"github.com/nijaru/yt-themes/models"
)

type RunRepository interface {
	Save(ctx context.Context, run *models.Run) error
	Find(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, limit int) ([]*models.Run, error)
}
