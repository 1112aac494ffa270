package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printdrive/internal/service/s3"
)

// fakeStorage реализует s3.Storage в памяти для тестов
type fakeStorage struct {
	presignPutCalls  []string
	presignPartCalls []int
	createdKeys      []string
	completedParts   []s3.CompletedPart
	aborted          bool
	failPartAfter    int // с какого номера части отказывать в подписи (0 = никогда)
}

func (f *fakeStorage) UploadBytes(key string, data []byte) error { return nil }
func (f *fakeStorage) DeleteObject(key string) error             { return nil }

func (f *fakeStorage) ObjectURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (f *fakeStorage) PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	f.presignPutCalls = append(f.presignPutCalls, key)
	return "https://s3.example.com/put/" + key, nil
}

func (f *fakeStorage) PresignUploadPart(ctx context.Context, uploadID, key string, partNumber int, expires time.Duration) (string, error) {
	if f.failPartAfter > 0 && partNumber >= f.failPartAfter {
		return "", fmt.Errorf("presign refused")
	}
	f.presignPartCalls = append(f.presignPartCalls, partNumber)
	return fmt.Sprintf("https://s3.example.com/put/%s/part/%d", key, partNumber), nil
}

func (f *fakeStorage) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	f.createdKeys = append(f.createdKeys, key)
	return "mp-upload-1", nil
}

func (f *fakeStorage) CompleteMultipartUpload(ctx context.Context, uploadID, key string, parts []s3.CompletedPart) error {
	f.completedParts = parts
	return nil
}

func (f *fakeStorage) AbortMultipartUpload(ctx context.Context, uploadID, key string) error {
	f.aborted = true
	return nil
}

func TestGeneratePresignedURL(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewPresignService(storage)

	presigned, err := svc.GeneratePresignedURL(context.Background(), "명함 design.pdf", "application/pdf", 1024)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(presigned.ObjectKey, "designs/"))
	// Небезопасные символы и не-ASCII вычищаются из ключа объекта
	assert.True(t, strings.HasSuffix(presigned.ObjectKey, "design.pdf"))
	assert.NotContains(t, presigned.ObjectKey, " ")
	assert.Equal(t, "https://cdn.example.com/"+presigned.ObjectKey, presigned.AccessURL)
	assert.Equal(t, "https://s3.example.com/put/"+presigned.ObjectKey, presigned.UploadURL)
	assert.Equal(t, int64(900), presigned.ExpiresIn)
}

func TestGeneratePresignedURL_UniqueKeys(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewPresignService(storage)

	first, err := svc.GeneratePresignedURL(context.Background(), "design.pdf", "application/pdf", 1024)
	require.NoError(t, err)
	second, err := svc.GeneratePresignedURL(context.Background(), "design.pdf", "application/pdf", 1024)
	require.NoError(t, err)

	assert.NotEqual(t, first.ObjectKey, second.ObjectKey)
}

func TestGeneratePresignedURL_InvalidSize(t *testing.T) {
	svc := NewPresignService(&fakeStorage{})

	_, err := svc.GeneratePresignedURL(context.Background(), "design.pdf", "application/pdf", 0)
	assert.Error(t, err)

	_, err = svc.GeneratePresignedURL(context.Background(), "design.pdf", "application/pdf", MaxObjectSize+1)
	assert.Error(t, err)
}

func TestInitiateMultipart(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewPresignService(storage)

	session, err := svc.InitiateMultipart(context.Background(), "design.pdf", "application/pdf", 12*1024*1024, 3)

	require.NoError(t, err)
	assert.Equal(t, "mp-upload-1", session.UploadID)
	require.Len(t, session.Parts, 3)
	for i, part := range session.Parts {
		assert.Equal(t, i+1, part.PartNumber)
		assert.NotEmpty(t, part.UploadURL)
	}
	assert.Equal(t, []int{1, 2, 3}, storage.presignPartCalls)
}

func TestInitiateMultipart_PartLimit(t *testing.T) {
	svc := NewPresignService(&fakeStorage{})

	_, err := svc.InitiateMultipart(context.Background(), "design.pdf", "application/pdf", 1024, MaxMultipartParts+1)
	assert.Error(t, err)

	_, err = svc.InitiateMultipart(context.Background(), "design.pdf", "application/pdf", 1024, 0)
	assert.Error(t, err)
}

func TestInitiateMultipart_AbortsOnPresignFailure(t *testing.T) {
	storage := &fakeStorage{failPartAfter: 2}
	svc := NewPresignService(storage)

	_, err := svc.InitiateMultipart(context.Background(), "design.pdf", "application/pdf", 12*1024*1024, 3)

	require.Error(t, err)
	assert.True(t, storage.aborted)
}

func TestCompleteMultipart(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewPresignService(storage)

	result, err := svc.CompleteMultipart(context.Background(), "mp-upload-1", "designs/abc/design.pdf", []s3.CompletedPart{
		{PartNumber: 1, ETag: "etag-1"},
		{PartNumber: 2, ETag: "etag-2"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/designs/abc/design.pdf", result.AccessURL)
	assert.Len(t, storage.completedParts, 2)
}

func TestCompleteMultipart_RejectsMissingETag(t *testing.T) {
	svc := NewPresignService(&fakeStorage{})

	_, err := svc.CompleteMultipart(context.Background(), "mp-upload-1", "designs/abc/design.pdf", []s3.CompletedPart{
		{PartNumber: 1, ETag: "etag-1"},
		{PartNumber: 2, ETag: ""},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing ETag")
}

func TestCompleteMultipart_RejectsUnorderedParts(t *testing.T) {
	svc := NewPresignService(&fakeStorage{})

	_, err := svc.CompleteMultipart(context.Background(), "mp-upload-1", "designs/abc/design.pdf", []s3.CompletedPart{
		{PartNumber: 2, ETag: "etag-2"},
		{PartNumber: 1, ETag: "etag-1"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ordered")
}

func TestCompleteMultipart_RejectsEmptyParts(t *testing.T) {
	svc := NewPresignService(&fakeStorage{})

	_, err := svc.CompleteMultipart(context.Background(), "mp-upload-1", "designs/abc/design.pdf", nil)
	assert.Error(t, err)
}
