package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/socialapp/social-executor/internal/models"
)

type PublishRecordRepository interface {
	Create(ctx context.Context, rec *models.PublishRecord) (int64, error)
	ListByPostID(ctx context.Context, postID string) ([]*models.PublishRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.PublishRecord, error)
}

type publishRecordRepository struct {
	db *sql.DB
}

func NewPublishRecordRepository(db *sql.DB) PublishRecordRepository {
	return &publishRecordRepository{db: db}
}

func (r *publishRecordRepository) Create(ctx context.Context, rec *models.PublishRecord) (int64, error) {
	query := `
		INSERT INTO publish_records (post_id, channel, external_id, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, rec.PostID, rec.Channel, rec.ExternalID, rec.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishRecordRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PublishRecord, error) {
	query := `SELECT id, post_id, channel, external_id, error_message, created_at FROM publish_records WHERE post_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanPublishRecords(rows)
}

func (r *publishRecordRepository) ListRecent(ctx context.Context, limit int) ([]*models.PublishRecord, error) {
	query := `SELECT id, post_id, channel, external_id, error_message, created_at FROM publish_records ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return scanPublishRecords(rows)
}

func scanPublishRecords(rows *sql.Rows) ([]*models.PublishRecord, error) {
	var recs []*models.PublishRecord
	for rows.Next() {
		var rec models.PublishRecord
		err := rows.Scan(&rec.ID, &rec.PostID, &rec.Channel, &rec.ExternalID, &rec.ErrorMessage, &rec.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
