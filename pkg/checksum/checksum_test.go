package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestComputeFile(t *testing.T) {
	tempDir := t.TempDir()
	content := []byte("hello world")
	testFile := writeFile(t, tempDir, "test.png", content)

	cs, err := ComputeFile(testFile)
	if err != nil {
		t.Fatalf("ComputeFile failed: %v", err)
	}

	if cs.Path != testFile {
		t.Errorf("Path = %v, want %v", cs.Path, testFile)
	}
	// crc32.ChecksumIEEE("hello world")
	if cs.CRC32 != 0x0d4a1185 {
		t.Errorf("CRC32 = %08x, want 0d4a1185", cs.CRC32)
	}
	if cs.Hex() != "0d4a1185" {
		t.Errorf("Hex() = %s, want 0d4a1185", cs.Hex())
	}
	if cs.SizeBytes != int64(len(content)) {
		t.Errorf("SizeBytes = %d, want %d", cs.SizeBytes, len(content))
	}
}

func TestComputeFile_Missing(t *testing.T) {
	if _, err := ComputeFile(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestComputeFiles(t *testing.T) {
	tempDir := t.TempDir()
	b := writeFile(t, tempDir, "b.png", []byte("bbb"))
	a := writeFile(t, tempDir, "a.png", []byte("aa"))
	missing := filepath.Join(tempDir, "missing.png")

	checksums, err := ComputeFiles(b, "", missing, a)
	if err != nil {
		t.Fatalf("ComputeFiles failed: %v", err)
	}

	if len(checksums) != 2 {
		t.Fatalf("Got %d checksums, want 2 (empty and missing paths skipped)", len(checksums))
	}
	if checksums[0].Path != a || checksums[1].Path != b {
		t.Errorf("Checksums not sorted by path: %v, %v", checksums[0].Path, checksums[1].Path)
	}
}

func TestFilesIdentical(t *testing.T) {
	tempDir := t.TempDir()
	first := writeFile(t, tempDir, "segment_000.png", []byte("same bytes"))
	second := writeFile(t, tempDir, "segment_001.png", []byte("same bytes"))
	sameSize := writeFile(t, tempDir, "segment_002.png", []byte("same bytez"))
	longer := writeFile(t, tempDir, "segment_003.png", []byte("same bytes plus"))

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical content", first, second, true},
		{"same size different byte", first, sameSize, false},
		{"different size", first, longer, false},
		{"file with itself", first, first, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilesIdentical(tt.a, tt.b)
			if err != nil {
				t.Fatalf("FilesIdentical failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("FilesIdentical = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := FilesIdentical(first, filepath.Join(tempDir, "missing.png")); err == nil {
		t.Error("expected error when a file is missing")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1610612736, "1.5 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := FormatSize(tt.bytes)
			if got != tt.expected {
				t.Errorf("FormatSize(%d) = %v, want %v", tt.bytes, got, tt.expected)
			}
		})
	}
}
