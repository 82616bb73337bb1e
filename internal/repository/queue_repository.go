package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/models"
)

// ErrQueueConflict is returned when a conditional save loses the race to a
// concurrent writer; callers reload and retry.
var ErrQueueConflict = errors.New("queue document changed since load")

// QueueRepository is the whole-document store for the post queue: one JSON
// object in S3, loaded and saved atomically. Save is conditional on the ETag
// observed at load time so two concurrent read-modify-write cycles cannot
// silently drop each other's updates.
type QueueRepository interface {
	Load(ctx context.Context) (*models.QueueDocument, string, error)
	Save(ctx context.Context, doc *models.QueueDocument, etag string) (string, error)
}

type queueRepository struct {
	client *s3.Client
	bucket string
	key    string
}

func NewQueueRepository(client *s3.Client, bucket, key string) QueueRepository {
	return &queueRepository{client: client, bucket: bucket, key: key}
}

// NewS3Client builds the shared S3 client. A non-empty endpoint points the
// client at an S3-compatible store (R2, MinIO).
func NewS3Client(c cfg.S3) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
		awsconfig.WithRegion(c.Region),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

func (r *queueRepository) Load(ctx context.Context) (*models.QueueDocument, string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return r.createEmpty(ctx)
		}
		slog.Info(err.Error())
		return nil, "", err
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", err
	}

	var doc models.QueueDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("queue document is not valid JSON: %w", err)
	}
	if doc.Posts == nil {
		doc.Posts = []*models.Post{}
	}

	return &doc, aws.ToString(out.ETag), nil
}

func (r *queueRepository) Save(ctx context.Context, doc *models.QueueDocument, etag string) (string, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}
	if etag != "" {
		input.IfMatch = aws.String(etag)
	}

	out, err := r.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			return "", ErrQueueConflict
		}
		slog.Info(err.Error())
		return "", err
	}

	return aws.ToString(out.ETag), nil
}

// createEmpty seeds the document the first time the key is read. The
// If-None-Match guard keeps two cold starts from clobbering each other; the
// loser just loads what the winner wrote.
func (r *queueRepository) createEmpty(ctx context.Context) (*models.QueueDocument, string, error) {
	empty := &models.QueueDocument{Posts: []*models.Post{}}
	body, _ := json.MarshalIndent(empty, "", "  ")

	out, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return r.Load(ctx)
		}
		slog.Info(err.Error())
		return nil, "", err
	}

	return empty, aws.ToString(out.ETag), nil
}

func isNoSuchKey(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return false
}
