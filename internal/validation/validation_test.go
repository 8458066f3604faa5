package validation

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := "/tmp/test"

	tests := []struct {
		name      string
		baseDir   string
		userPath  string
		want      string
		wantError error
	}{
		{
			name:     "simple valid path",
			baseDir:  baseDir,
			userPath: "xs.npy",
			want:     "xs.npy",
		},
		{
			name:     "nested valid path",
			baseDir:  baseDir,
			userPath: "group/xs.npy",
			want:     filepath.Join("group", "xs.npy"),
		},
		{
			name:     "path with redundant separators",
			baseDir:  baseDir,
			userPath: "group//xs.npy",
			want:     filepath.Join("group", "xs.npy"),
		},
		{
			name:     "path with dot component",
			baseDir:  baseDir,
			userPath: "./xs.npy",
			want:     "xs.npy",
		},
		{
			name:     "double dot inside a filename",
			baseDir:  baseDir,
			userPath: "xs..npy",
			want:     "xs..npy",
		},
		{
			name:      "path traversal with dotdot",
			baseDir:   baseDir,
			userPath:  "../etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "path traversal in middle",
			baseDir:   baseDir,
			userPath:  "group/../../etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "absolute path",
			baseDir:   baseDir,
			userPath:  "/etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "empty path",
			baseDir:   baseDir,
			userPath:  "",
			wantError: ErrEmptyPath,
		},
		{
			name:      "very long path",
			baseDir:   baseDir,
			userPath:  strings.Repeat("a/", 2048) + "xs.npy",
			wantError: ErrPathTooLong,
		},
		{
			name:      "path that would escape after resolution",
			baseDir:   "/tmp/base/subdir",
			userPath:  "a/b/../../../etc/passwd",
			wantError: ErrPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(tt.baseDir, tt.userPath)

			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("SanitizePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizePath() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizePath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEntryName(t *testing.T) {
	tests := []struct {
		name      string
		entry     string
		wantError error
	}{
		{"simple name", "xs", nil},
		{"nested name", "layer0/weights", nil},
		{"dots inside name", "a..b", nil},
		{"unicode name", "größe", nil},
		{"empty", "", ErrInvalidName},
		{"too long", strings.Repeat("a", MaxFilenameLength+1), ErrFilenameTooLong},
		{"max length", strings.Repeat("a", MaxFilenameLength), nil},
		{"leading slash", "/xs", ErrInvalidName},
		{"backslash", `a\b`, ErrInvalidName},
		{"null byte", "x\x00s", ErrInvalidName},
		{"control character", "x\ns", ErrInvalidName},
		{"dotdot component", "../xs", ErrInvalidName},
		{"dotdot in middle", "a/../../xs", ErrInvalidName},
		{"bare dotdot", "..", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntryName(tt.entry)
			if tt.wantError == nil {
				if err != nil {
					t.Errorf("ValidateEntryName(%q) unexpected error: %v", tt.entry, err)
				}
				return
			}
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidateEntryName(%q) error = %v, want %v", tt.entry, err, tt.wantError)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantError error
	}{
		{"valid simple filename", "xs.npy", nil},
		{"empty", "", ErrInvalidFilename},
		{"too long", strings.Repeat("a", MaxFilenameLength+1), ErrFilenameTooLong},
		{"dot", ".", ErrInvalidFilename},
		{"dotdot", "..", ErrInvalidFilename},
		{"forward slash", "a/b", ErrInvalidFilename},
		{"backslash", `a\b`, ErrInvalidFilename},
		{"null byte", "a\x00b", ErrInvalidFilename},
		{"tab", "a\tb", ErrInvalidFilename},
		{"leading hyphen", "-rf", ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantError == nil {
				if err != nil {
					t.Errorf("ValidateFilename() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidateFilename() error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantFail bool
	}{
		{"unchanged", "xs", "xs", false},
		{"separators replaced", "a/b\\c", "a_b_c", false},
		{"whitespace trimmed", "  xs  ", "xs", false},
		{"control characters dropped", "x\x00s\n", "xs", false},
		{"leading hyphens dropped", "--xs", "xs", false},
		{"nothing left", "\x00\x01", "", true},
		{"reserved", "..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.input)
			if tt.wantFail {
				if err == nil {
					t.Errorf("SanitizeFilename(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeFilename(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want FileType
	}{
		{"npy", []byte("\x93NUMPY\x01\x00v\x00"), FileTypeNPY},
		{"zip", []byte("PK\x03\x04rest"), FileTypeNPZ},
		{"empty zip", []byte("PK\x05\x06rest"), FileTypeNPZ},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, FileTypeGzip},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, FileTypeXZ},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, FileTypeZstd},
		{"lz4", []byte{0x04, 0x22, 0x4d, 0x18, 0x64}, FileTypeLZ4},
		{"short", []byte{0x93}, FileTypeUnknown},
		{"empty", nil, FileTypeUnknown},
		{"text", []byte("hello world"), FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFileType(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("DetectFileType: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFileType() = %v, want %v", got, tt.want)
			}
		})
	}
}

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}

func TestValidateFileType(t *testing.T) {
	npy := []byte("\x93NUMPY\x01\x00v\x00")

	tests := []struct {
		name     string
		data     []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{"npy with npy extension", npy, "xs.npy", FileTypeNPY, false},
		{"zip with npz extension", []byte("PK\x03\x04"), "a.npz", FileTypeNPZ, false},
		{"gzip with gz extension", []byte{0x1f, 0x8b}, "xs.npy.gz", FileTypeGzip, false},
		{"unknown extension", npy, "xs.bin", FileTypeNPY, false},
		{"npy content with npz extension", npy, "a.npz", FileTypeUnknown, true},
		{"text with npy extension", []byte("hello"), "xs.npy", FileTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(bytes.NewReader(tt.data), tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFileType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateFileType() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("read error", func(t *testing.T) {
		if _, err := ValidateFileType(errorReader{}, "xs.npy"); err == nil {
			t.Error("expected error from failing reader")
		}
	})
}

func BenchmarkSanitizePath(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SanitizePath("/tmp/test", "group/xs.npy")
	}
}

func BenchmarkValidateEntryName(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateEntryName("layer0/weights")
	}
}
