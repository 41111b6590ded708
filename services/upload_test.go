package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func createMockFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	assert.NoError(t, err)
	_, err = part.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(16 * 1024 * 1024)
	assert.NoError(t, err)
	return form.File["file"][0]
}

func TestValidatePODCopyUpload(t *testing.T) {
	t.Run("valid PDF", func(t *testing.T) {
		content := append([]byte("%PDF-1.4\n"), make([]byte, 100)...)
		assert.NoError(t, ValidatePODCopyUpload(createMockFileHeader(t, "pod.pdf", content)))
	})

	t.Run("valid PNG", func(t *testing.T) {
		content := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 100)...)
		assert.NoError(t, ValidatePODCopyUpload(createMockFileHeader(t, "pod.png", content)))
	})

	t.Run("valid JPEG", func(t *testing.T) {
		content := append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 100)...)
		assert.NoError(t, ValidatePODCopyUpload(createMockFileHeader(t, "pod.jpg", content)))
	})

	t.Run("disallowed extension", func(t *testing.T) {
		err := ValidatePODCopyUpload(createMockFileHeader(t, "pod.exe", []byte("fake")))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "file type not allowed")
	})

	t.Run("PDF extension with non-PDF content", func(t *testing.T) {
		err := ValidatePODCopyUpload(createMockFileHeader(t, "fake.pdf", []byte("just text")))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid PDF")
	})

	t.Run("file too large", func(t *testing.T) {
		content := append([]byte("%PDF-1.4"), make([]byte, 11*1024*1024)...)
		err := ValidatePODCopyUpload(createMockFileHeader(t, "big.pdf", content))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})
}

func TestValidateWordUpload(t *testing.T) {
	t.Run("valid docx", func(t *testing.T) {
		content := append([]byte("PK\x03\x04"), make([]byte, 100)...)
		assert.NoError(t, ValidateWordUpload(createMockFileHeader(t, "template.docx", content)))
	})

	t.Run("valid legacy doc", func(t *testing.T) {
		content := append([]byte{0xD0, 0xCF, 0x11, 0xE0}, make([]byte, 100)...)
		assert.NoError(t, ValidateWordUpload(createMockFileHeader(t, "template.doc", content)))
	})

	t.Run("docx extension with wrong magic", func(t *testing.T) {
		err := ValidateWordUpload(createMockFileHeader(t, "fake.docx", []byte("not a zip")))
		assert.Error(t, err)
	})

	t.Run("non-word extension", func(t *testing.T) {
		err := ValidateWordUpload(createMockFileHeader(t, "letter.pdf", []byte("%PDF-1.4")))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Word documents")
	})
}

func TestValidateProfileImageUpload(t *testing.T) {
	t.Run("valid image", func(t *testing.T) {
		assert.NoError(t, ValidateProfileImageUpload(createMockFileHeader(t, "avatar.png", []byte("img"))))
	})

	t.Run("too large", func(t *testing.T) {
		err := ValidateProfileImageUpload(createMockFileHeader(t, "avatar.jpg", make([]byte, 3*1024*1024)))
		assert.Error(t, err)
	})

	t.Run("wrong type", func(t *testing.T) {
		err := ValidateProfileImageUpload(createMockFileHeader(t, "avatar.gif", []byte("img")))
		assert.Error(t, err)
	})
}

func TestSaveReadDeleteUploadedFile(t *testing.T) {
	uploadDir, err := os.MkdirTemp("", "upload_test")
	assert.NoError(t, err)
	defer os.RemoveAll(uploadDir)

	content := append([]byte("%PDF-1.4\n"), []byte("body")...)
	header := createMockFileHeader(t, "pod copy.pdf", content)

	result, err := SaveUploadedFile(header, uploadDir, "couriers/abc/pod")
	assert.NoError(t, err)
	assert.Equal(t, "pod copy.pdf", result.FileOriginalName)
	assert.Equal(t, int64(len(content)), result.FileSize)
	assert.Contains(t, result.FilePath, filepath.Join("couriers", "abc", "pod"))

	t.Run("saved file round-trips through ReadUploadedFile", func(t *testing.T) {
		data, err := ReadUploadedFile(uploadDir, result.FilePath)
		assert.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("reads outside the upload dir are rejected", func(t *testing.T) {
		_, err := ReadUploadedFile(uploadDir, "/etc/hostname")
		assert.Error(t, err)

		_, err = ReadUploadedFile(uploadDir, filepath.Join(uploadDir, "..", "escape.txt"))
		assert.Error(t, err)
	})

	t.Run("delete removes the file and tolerates repeats", func(t *testing.T) {
		assert.NoError(t, DeleteUploadedFile(uploadDir, result.FilePath))
		_, err := os.Stat(filepath.Join(uploadDir, result.FilePath))
		assert.True(t, os.IsNotExist(err))

		assert.NoError(t, DeleteUploadedFile(uploadDir, result.FilePath))
		assert.NoError(t, DeleteUploadedFile(uploadDir, ""))
	})
}
