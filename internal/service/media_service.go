package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	cfg "github.com/socialapp/social-executor/configs"
	"github.com/socialapp/social-executor/internal/transfer"
)

// MediaService ingests draft media into S3 and hands out presigned URLs for
// the Graph API to fetch from. Keys live under the configured media prefix.
type MediaService interface {
	IngestInline(ctx context.Context, m *transfer.MediaInline, captionHint string) (string, error)
	IngestDataURL(ctx context.Context, dataURL, captionHint string) (string, error)
	PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type mediaService struct {
	cfg     cfg.Config
	client  *s3.Client
	presign *s3.PresignClient
}

func NewMediaService(c cfg.Config, client *s3.Client) MediaService {
	return &mediaService{cfg: c, client: client, presign: s3.NewPresignClient(client)}
}

func (m *mediaService) IngestInline(ctx context.Context, inline *transfer.MediaInline, captionHint string) (string, error) {
	if inline == nil || inline.Content == "" {
		return "", fmt.Errorf("inline media has no content")
	}

	var data []byte
	switch strings.ToLower(inline.Encoding) {
	case "", "utf8":
		data = []byte(inline.Content)
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(inline.Content)
		if err != nil {
			return "", fmt.Errorf("decode inline media: %w", err)
		}
		data = decoded
	default:
		return "", fmt.Errorf("unsupported inline encoding %q", inline.Encoding)
	}

	mime := inline.Mime
	if mime == "" {
		mime = "image/svg+xml"
	}
	return m.upload(ctx, data, mime, captionHint)
}

func (m *mediaService) IngestDataURL(ctx context.Context, dataURL, captionHint string) (string, error) {
	// data:<mime>;base64,<payload>
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", fmt.Errorf("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", fmt.Errorf("malformed data URL")
	}

	mime, enc := header, ""
	if h, e, found := strings.Cut(header, ";"); found {
		mime, enc = h, e
	}
	if enc != "base64" {
		return "", fmt.Errorf("data URL must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode data URL: %w", err)
	}
	return m.upload(ctx, data, mime, captionHint)
}

func (m *mediaService) upload(ctx context.Context, data []byte, declaredMime, captionHint string) (string, error) {
	mime := declaredMime
	ext := extFromMime(declaredMime)

	// Prefer the sniffed type over whatever the client declared.
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
		ext = kind.Extension
	}

	suffix, err := gonanoid.New(8)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s-%s.%s", strings.TrimSuffix(m.cfg.S3.MediaDir, "/"), slugify(captionHint), suffix, ext)

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return key, nil
}

func (m *mediaService) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := m.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return req.URL, nil
}

func extFromMime(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/svg+xml":
		return "svg"
	case "video/mp4":
		return "mp4"
	}
	return "bin"
}

// slugify keeps a readable caption fragment in the object key.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
		if b.Len() >= 40 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "media"
	}
	return slug
}
