package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
)

const (
	MaxUploadSize       = 10 * 1024 * 1024 // 10MB for POD copies and Word templates
	MaxProfileImageSize = 2 * 1024 * 1024  // 2MB
)

type UploadResult struct {
	FileName         string
	FileOriginalName string
	FilePath         string
	FileSize         int64
	MimeType         string
}

// ValidatePODCopyUpload checks if the uploaded proof-of-delivery copy is a
// PDF or image within size limits
func ValidatePODCopyUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxUploadSize {
		return fmt.Errorf("file size exceeds maximum allowed size of 10MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".pdf", ".jpg", ".jpeg", ".png":
	default:
		return fmt.Errorf("file type not allowed. Accepted formats: PDF, JPG, PNG")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// Read first 512 bytes to verify the content matches the extension
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	buffer = buffer[:n]

	switch ext {
	case ".pdf":
		if len(buffer) < 4 || string(buffer[0:4]) != "%PDF" {
			return fmt.Errorf("file is not a valid PDF")
		}
	case ".png":
		if len(buffer) < 8 || string(buffer[1:4]) != "PNG" {
			return fmt.Errorf("file is not a valid PNG image")
		}
	case ".jpg", ".jpeg":
		if len(buffer) < 3 || buffer[0] != 0xFF || buffer[1] != 0xD8 {
			return fmt.Errorf("file is not a valid JPEG image")
		}
	}

	return nil
}

// ValidateWordUpload checks if the uploaded file is a Word document within
// size limits
func ValidateWordUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxUploadSize {
		return fmt.Errorf("file size exceeds maximum allowed size of 10MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".doc" && ext != ".docx" {
		return fmt.Errorf("only Word documents (.doc, .docx) are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, 4)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file content: %w", err)
	}

	// .docx is a zip archive (PK), legacy .doc is an OLE compound file
	if ext == ".docx" {
		if n < 2 || buffer[0] != 'P' || buffer[1] != 'K' {
			return fmt.Errorf("file is not a valid Word document")
		}
	} else {
		if n < 4 || buffer[0] != 0xD0 || buffer[1] != 0xCF || buffer[2] != 0x11 || buffer[3] != 0xE0 {
			return fmt.Errorf("file is not a valid Word document")
		}
	}

	return nil
}

// ValidateProfileImageUpload checks if the uploaded profile image is a JPG or
// PNG within size limits
func ValidateProfileImageUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxProfileImageSize {
		return fmt.Errorf("image size exceeds maximum allowed size of 2MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		return fmt.Errorf("only JPG and PNG images are allowed")
	}

	return nil
}

// storageFor returns the configured provider, or a local-disk provider when
// InitializeStorage has not run (tests, CLI tools)
func storageFor(uploadDir string) StorageProvider {
	if Storage != nil {
		return Storage
	}
	return NewLocalStorage(uploadDir)
}

// SaveUploadedFile stores the uploaded file under subDir with a filename
// derived from the content hash. The returned FilePath is the storage key.
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir string, subDir string) (*UploadResult, error) {
	if strings.Contains(subDir, "..") || filepath.IsAbs(subDir) {
		return nil, fmt.Errorf("invalid upload path")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to calculate file hash: %w", err)
	}
	file.Close()
	hashStr := hex.EncodeToString(hash.Sum(nil))[:16]

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := filepath.ToSlash(filepath.Join(subDir, fmt.Sprintf("%s_%d%s", hashStr, time.Now().Unix(), ext)))

	result, err := storageFor(uploadDir).Upload(context.Background(), fileHeader, key)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	return &UploadResult{
		FileName:         result.FileName,
		FileOriginalName: fileHeader.Filename,
		FilePath:         result.Key,
		FileSize:         result.FileSize,
		MimeType:         fileHeader.Header.Get("Content-Type"),
	}, nil
}

// DeleteUploadedFile removes a stored file by key. Missing files are not an
// error so replace-and-delete flows stay idempotent.
func DeleteUploadedFile(uploadDir, key string) error {
	if key == "" {
		return nil
	}
	return storageFor(uploadDir).Delete(context.Background(), key)
}

// ReadUploadedFile loads a stored file back into memory, rejecting keys that
// point outside the storage namespace
func ReadUploadedFile(uploadDir, key string) ([]byte, error) {
	if key == "" || filepath.IsAbs(key) || strings.Contains(key, "..") {
		return nil, fmt.Errorf("invalid file path")
	}

	reader, _, err := storageFor(uploadDir).Get(context.Background(), key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
