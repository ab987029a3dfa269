// internal/services/storage_service_test.go
package services

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/errs"
)

type memUpload struct {
	*bytes.Reader
}

func (memUpload) Close() error { return nil }

func TestStorageServiceLocalFallback(t *testing.T) {
	svc := NewStorageService(config.AWSConfig{})
	require.NotNil(t, svc)

	// PNG magic bytes followed by padding.
	content := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	var file multipart.File = memUpload{bytes.NewReader(content)}
	header := &multipart.FileHeader{Filename: "apples.png", Size: int64(len(content))}

	require.NoError(t, svc.ValidateImage(file))

	result, err := svc.UploadFile(file, header, svc.GetDefaultUploadOptions("products"))
	require.NoError(t, err)
	assert.Contains(t, result.URL, "/uploads/products/")
	assert.Equal(t, int64(len(content)), result.Size)

	// Degraded mode stays safe for the other operations too.
	assert.NoError(t, svc.DeleteFile(result.Key))
	_, err = svc.GeneratePresignedURL(result.Key, 0)
	assert.True(t, errs.IsKind(err, errs.KindPreconditionFailed))
}

func TestStorageServiceRejectsDisallowedUploads(t *testing.T) {
	svc := NewStorageService(config.AWSConfig{})
	options := svc.GetDefaultUploadOptions("products")

	var file multipart.File = memUpload{bytes.NewReader([]byte("plain text"))}

	_, err := svc.UploadFile(file, &multipart.FileHeader{Filename: "notes.txt", Size: 10}, options)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	_, err = svc.UploadFile(file, &multipart.FileHeader{Filename: "huge.png", Size: options.MaxSize + 1}, options)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}
