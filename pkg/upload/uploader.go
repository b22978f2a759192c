package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"gigchat/internal/errors"
	"gigchat/internal/metrics"
	"gigchat/internal/models"
	"gigchat/internal/tracing"
)

// ProgressFunc receives cumulative upload progress: bytes sent so far and
// the total file size.
type ProgressFunc func(sent, total int64)

// Uploader pushes media files to the upload collaborator. Files at or below
// the chunk size go up in a single request; larger files are split into
// fixed-size sequential chunks. There is no resume: a failed chunk fails the
// whole upload.
type Uploader struct {
	endpoint   string
	httpClient *http.Client
	chunkSize  int64
	limits     models.MediaSizeLimits
	logger     *logrus.Logger
	registry   *metrics.Registry
}

// NewUploader creates an uploader for the given endpoint.
func NewUploader(cfg models.UploadConfig, logger *logrus.Logger, registry *metrics.Registry) *Uploader {
	return &Uploader{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		chunkSize:  cfg.ChunkSizeBytes,
		limits:     cfg.MaxSizeMB,
		logger:     logger,
		registry:   registry,
	}
}

// Bucket classifies a declared content type into its size-limit bucket.
func Bucket(contentType string) models.UploadBucket {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.UploadBucketImage
	case strings.HasPrefix(contentType, "video/"):
		return models.UploadBucketVideo
	default:
		return models.UploadBucketRaw
	}
}

// maxBytes returns the size cap for a bucket.
func (u *Uploader) maxBytes(bucket models.UploadBucket) int64 {
	var mb int
	switch bucket {
	case models.UploadBucketImage:
		mb = u.limits.Image
	case models.UploadBucketVideo:
		mb = u.limits.Video
	default:
		mb = u.limits.Document
	}
	return int64(mb) * 1024 * 1024
}

// Upload validates and uploads the file at path, reporting cumulative
// progress through progress (which may be nil). Validation failures are
// rejected before any network request is issued.
func (u *Uploader) Upload(ctx context.Context, path, contentType string, progress ProgressFunc) (*models.UploadResult, error) {
	ctx, span := tracing.StartSpan(ctx, "upload.Upload",
		attribute.String("content.type", contentType))
	defer span.End()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	bucket := Bucket(contentType)
	size := info.Size()
	if max := u.maxBytes(bucket); size > max {
		err := errors.New(errors.ErrCodeMediaTooLarge,
			fmt.Sprintf("%s too large: %d > %d bytes", bucket, size, max)).
			WithUserMessage(fmt.Sprintf("File exceeds the %dMB limit", max/(1024*1024)))
		tracing.RecordError(ctx, err)
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	u.registry.Increment(metrics.UploadsStarted)
	start := time.Now()

	var result *models.UploadResult
	if size <= u.chunkSize {
		result, err = u.uploadWhole(ctx, file, filepath.Base(path), contentType, size, progress)
	} else {
		result, err = u.uploadChunked(ctx, file, filepath.Base(path), contentType, size, progress)
	}
	if err != nil {
		u.registry.Increment(metrics.UploadsFailed)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	u.registry.Add(metrics.UploadBytes, size)
	u.registry.Observe(metrics.UploadDuration, time.Since(start))

	u.logger.WithFields(logrus.Fields{
		"bucket":    bucket,
		"size":      size,
		"public_id": result.PublicID,
	}).Debug("Upload completed")

	return result, nil
}

// uploadWhole issues exactly one request for files at or below the chunk
// threshold.
func (u *Uploader) uploadWhole(ctx context.Context, file io.Reader, name, contentType string, size int64, progress ProgressFunc) (*models.UploadResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	result, err := u.postChunk(ctx, data, name, contentType, nil)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(size, size)
	}
	return result, nil
}

// uploadChunked splits the file into fixed-size sequential chunks, uploaded
// in strictly increasing offset order under one shared upload id.
func (u *Uploader) uploadChunked(ctx context.Context, file io.Reader, name, contentType string, size int64, progress ProgressFunc) (*models.UploadResult, error) {
	uploadID := uuid.New().String()
	buf := make([]byte, u.chunkSize)

	var sent int64
	var result *models.UploadResult
	for sent < size {
		n, err := io.ReadFull(file, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			// Final, shorter chunk
		} else if err != nil {
			return nil, fmt.Errorf("failed to read chunk at offset %d: %w", sent, err)
		}
		if n == 0 {
			break
		}

		headers := map[string]string{
			"X-Unique-Upload-Id": uploadID,
			"Content-Range":      fmt.Sprintf("bytes %d-%d/%d", sent, sent+int64(n)-1, size),
		}

		chunkResult, err := u.postChunk(ctx, buf[:n], name, contentType, headers)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUploadFailed,
				fmt.Sprintf("chunk at offset %d failed", sent)).
				WithUserMessage("Upload failed, please try again")
		}

		sent += int64(n)
		if progress != nil {
			progress(sent, size)
		}
		// The collaborator returns the final URL once the last chunk lands.
		if chunkResult != nil && chunkResult.ResolvedURL() != "" {
			result = chunkResult
		}
	}

	if result == nil {
		return nil, errors.New(errors.ErrCodeUploadFailed, "upload completed without a result URL").
			WithUserMessage("Upload failed, please try again")
	}
	return result, nil
}

// postChunk issues one upload request and decodes the collaborator response
// if it carries one.
func (u *Uploader) postChunk(ctx context.Context, data []byte, name, contentType string, headers map[string]string) (*models.UploadResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := writer.WriteField("resource_type", string(Bucket(contentType))); err != nil {
		return nil, fmt.Errorf("failed to write resource_type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Intermediate chunk responses may have no body
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}
