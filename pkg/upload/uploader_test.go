package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigchat/internal/metrics"
	"gigchat/internal/models"
)

type recordedRequest struct {
	uploadID     string
	contentRange string
	bodySize     int64
}

// uploadRecorder is a stub endpoint that records every request and answers
// like the production collaborator: intermediate chunks get an empty 200,
// the final chunk (and single-shot uploads) get a result body.
type uploadRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	failAt   int // 1-based request index to fail, 0 disables
}

func (u *uploadRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		info, err := file.Seek(0, 2)
		require.NoError(t, err)

		u.mu.Lock()
		u.requests = append(u.requests, recordedRequest{
			uploadID:     r.Header.Get("X-Unique-Upload-Id"),
			contentRange: r.Header.Get("Content-Range"),
			bodySize:     info,
		})
		index := len(u.requests)
		fail := u.failAt > 0 && index == u.failAt
		u.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		contentRange := r.Header.Get("Content-Range")
		if contentRange != "" {
			var start, end, total int64
			_, err := fmt.Sscanf(contentRange, "bytes %d-%d/%d", &start, &end, &total)
			require.NoError(t, err)
			if end+1 < total {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		json.NewEncoder(w).Encode(models.UploadResult{
			SecureURL: "https://cdn.example.com/v1/file.bin",
			PublicID:  "file.bin",
		})
	}
}

func (u *uploadRecorder) recorded() []recordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]recordedRequest(nil), u.requests...)
}

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func newTestUploader(endpoint string, chunkSize int64) *Uploader {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewUploader(models.UploadConfig{
		Endpoint:       endpoint,
		ChunkSizeBytes: chunkSize,
		TimeoutSec:     5,
		MaxSizeMB:      models.MediaSizeLimits{Image: 10, Video: 100, Document: 10},
	}, logger, metrics.NewRegistry())
}

func TestBucket(t *testing.T) {
	tests := []struct {
		contentType string
		expected    models.UploadBucket
	}{
		{"image/png", models.UploadBucketImage},
		{"image/jpeg", models.UploadBucketImage},
		{"video/mp4", models.UploadBucketVideo},
		{"audio/wav", models.UploadBucketRaw},
		{"application/pdf", models.UploadBucketRaw},
		{"", models.UploadBucketRaw},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, Bucket(tt.contentType))
		})
	}
}

func TestUpload_RejectsOversizedFileBeforeAnyRequest(t *testing.T) {
	recorder := &uploadRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	uploader := newTestUploader(server.URL, 1024)
	path := writeTempFile(t, 11*1024*1024) // over the 10MB document cap

	_, err := uploader.Upload(context.Background(), path, "application/pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
	assert.Empty(t, recorder.recorded(), "validation failures must not reach the network")
}

func TestUpload_SmallFileSingleRequest(t *testing.T) {
	recorder := &uploadRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	uploader := newTestUploader(server.URL, 1024)
	path := writeTempFile(t, 600)

	var calls []int64
	result, err := uploader.Upload(context.Background(), path, "image/png", func(sent, total int64) {
		calls = append(calls, sent)
		assert.Equal(t, int64(600), total)
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v1/file.bin", result.ResolvedURL())

	requests := recorder.recorded()
	require.Len(t, requests, 1)
	assert.Empty(t, requests[0].contentRange)
	assert.Empty(t, requests[0].uploadID)
	assert.Equal(t, []int64{600}, calls)
}

func TestUpload_ChunkedSequentialOffsets(t *testing.T) {
	recorder := &uploadRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	const chunkSize = 1024
	const fileSize = 2*chunkSize + 300 // three chunks, last one short

	uploader := newTestUploader(server.URL, chunkSize)
	path := writeTempFile(t, fileSize)

	var progress []int64
	result, err := uploader.Upload(context.Background(), path, "video/mp4", func(sent, total int64) {
		progress = append(progress, sent)
		assert.Equal(t, int64(fileSize), total)
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	requests := recorder.recorded()
	require.Len(t, requests, 3)

	// Same upload id throughout, strictly increasing ranges.
	uploadID := requests[0].uploadID
	assert.NotEmpty(t, uploadID)
	expected := []string{
		fmt.Sprintf("bytes 0-%d/%d", chunkSize-1, fileSize),
		fmt.Sprintf("bytes %d-%d/%d", chunkSize, 2*chunkSize-1, fileSize),
		fmt.Sprintf("bytes %d-%d/%d", 2*chunkSize, fileSize-1, fileSize),
	}
	for i, req := range requests {
		assert.Equal(t, uploadID, req.uploadID)
		assert.Equal(t, expected[i], req.contentRange)
	}

	// Progress is cumulative.
	assert.Equal(t, []int64{chunkSize, 2 * chunkSize, fileSize}, progress)
}

func TestUpload_ChunkFailureAbortsWithoutResume(t *testing.T) {
	recorder := &uploadRecorder{failAt: 2}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	uploader := newTestUploader(server.URL, 1024)
	path := writeTempFile(t, 3*1024)

	_, err := uploader.Upload(context.Background(), path, "application/pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk at offset 1024")
	assert.Len(t, recorder.recorded(), 2, "no retries and no further chunks after a failure")
}

func TestUpload_FileAtThresholdIsSingleRequest(t *testing.T) {
	recorder := &uploadRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	const chunkSize = 1024
	uploader := newTestUploader(server.URL, chunkSize)
	path := writeTempFile(t, chunkSize)

	_, err := uploader.Upload(context.Background(), path, "image/png", nil)
	require.NoError(t, err)

	requests := recorder.recorded()
	require.Len(t, requests, 1)
	assert.Empty(t, requests[0].contentRange)
}

func TestUpload_MissingFileFailsBeforeAnyRequest(t *testing.T) {
	recorder := &uploadRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	uploader := newTestUploader(server.URL, 1024)
	_, err := uploader.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "image/png", nil)
	require.Error(t, err)
	assert.Empty(t, recorder.recorded())
}
