package checksum

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
)

// FileChecksum represents a file's checksum and metadata
type FileChecksum struct {
	Path      string `json:"path"`
	CRC32     uint32 `json:"crc32"`
	SizeBytes int64  `json:"size_bytes"`
}

// Hex returns the checksum as 8 lowercase hex digits, the form stored in the ledger.
func (fc *FileChecksum) Hex() string {
	return fmt.Sprintf("%08x", fc.CRC32)
}

// ComputeFile computes the CRC32 checksum for a single file
func ComputeFile(path string) (*FileChecksum, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hash := crc32.NewIEEE()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("failed to compute checksum: %w", err)
	}

	return &FileChecksum{
		Path:      path,
		CRC32:     hash.Sum32(),
		SizeBytes: info.Size(),
	}, nil
}

// ComputeFiles checksums every existing path, skipping empty strings and files
// that do not exist. Results are sorted by path.
func ComputeFiles(paths ...string) ([]*FileChecksum, error) {
	var checksums []*FileChecksum
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		cs, err := ComputeFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compute checksum for %s: %w", p, err)
		}
		checksums = append(checksums, cs)
	}

	sort.Slice(checksums, func(i, j int) bool {
		return checksums[i].Path < checksums[j].Path
	})

	return checksums, nil
}

// FilesIdentical reports whether two files hold exactly the same bytes.
// This is the end-of-scroll test for full-page capture: any rendering jitter
// between two screenshots counts as "still changing".
func FilesIdentical(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", a, err)
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", b, err)
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}

	dataA, err := os.ReadFile(a)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", a, err)
	}
	dataB, err := os.ReadFile(b)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", b, err)
	}

	return bytes.Equal(dataA, dataB), nil
}

// FormatSize formats bytes in human-readable format
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
