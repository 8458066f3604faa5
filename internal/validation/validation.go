// Package validation checks archive member names and user-supplied paths
// before they reach the zip container or the file system.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxFilenameLength is the maximum allowed filename or member name length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrInvalidName      = errors.New("invalid entry name")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// SanitizePath validates a user-supplied path and ensures it does not escape
// baseDir. Returns the cleaned path relative to baseDir.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(userPath)

	if hasDotDot(filepath.ToSlash(cleanPath)) {
		return "", ErrPathTraversal
	}
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	fullPath := filepath.Join(baseDir, cleanPath)
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateEntryName checks the name of an array stored in an archive. Names
// may contain forward slashes but no backslashes, no ".." components, no
// leading slash and no control characters.
func ValidateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxFilenameLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFilenameTooLong, len(name), MaxFilenameLength)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: leading slash not allowed", ErrInvalidName)
	}
	if strings.Contains(name, "\\") {
		return fmt.Errorf("%w: backslash not allowed", ErrInvalidName)
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidName)
		}
	}
	if hasDotDot(name) {
		return fmt.Errorf("%w: %q component not allowed", ErrInvalidName, "..")
	}
	return nil
}

func hasDotDot(slashPath string) bool {
	for _, part := range strings.Split(slashPath, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// ValidateFilename checks that a bare filename is safe to create.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// SanitizeFilename turns arbitrary input into a safe bare filename by
// replacing separators and dropping control characters.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	var cleaned strings.Builder
	for _, r := range filename {
		if r != 0 && !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// FileType is a container format recognized from magic bytes.
type FileType string

const (
	FileTypeNPY     FileType = "npy"
	FileTypeNPZ     FileType = "npz"
	FileTypeGzip    FileType = "gzip"
	FileTypeXZ      FileType = "xz"
	FileTypeZstd    FileType = "zstd"
	FileTypeLZ4     FileType = "lz4"
	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeNPY, []byte{0x93, 'N', 'U', 'M', 'P', 'Y'}},
	{FileTypeNPZ, []byte{0x50, 0x4b, 0x03, 0x04}},
	{FileTypeNPZ, []byte{0x50, 0x4b, 0x05, 0x06}}, // empty archive
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{FileTypeLZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// DetectFileType sniffs the leading bytes of r. Compressed single-array
// files report their compression format.
func DetectFileType(r io.Reader) (FileType, error) {
	buf := make([]byte, 8)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	return detectFileTypeFromMagic(buf[:n]), nil
}

// ValidateFileType checks that the content of r matches the type implied
// by filename and returns the detected type.
func ValidateFileType(r io.Reader, filename string) (FileType, error) {
	detected, err := DetectFileType(r)
	if err != nil {
		return FileTypeUnknown, err
	}
	expected := detectFileTypeFromExtension(filename)
	if expected != FileTypeUnknown && detected != expected {
		return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expected, detected)
	}
	return detected, nil
}

func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

func detectFileTypeFromExtension(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".npy":
		return FileTypeNPY
	case ".npz", ".zip":
		return FileTypeNPZ
	case ".gz":
		return FileTypeGzip
	case ".xz":
		return FileTypeXZ
	case ".zst":
		return FileTypeZstd
	case ".lz4":
		return FileTypeLZ4
	default:
		return FileTypeUnknown
	}
}
