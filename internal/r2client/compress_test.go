package r2client

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompressDecompress(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "menu.db")
	compressedPath := filepath.Join(tmpDir, "menu.db.zst")
	decompressedPath := filepath.Join(tmpDir, "restored.db")

	testData := strings.Repeat("2026-10-14|cmi|soup|Tomato soup|0.80|1.20\n", 2000)
	if err := os.WriteFile(srcPath, []byte(testData), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if err := CompressFile(srcPath, compressedPath); err != nil {
		t.Fatalf("CompressFile failed: %v", err)
	}

	srcInfo, _ := os.Stat(srcPath)
	compressedInfo, err := os.Stat(compressedPath)
	if err != nil {
		t.Fatalf("Compressed file not created: %v", err)
	}
	if compressedInfo.Size() >= srcInfo.Size() {
		t.Errorf("compressed size %d should be below original %d", compressedInfo.Size(), srcInfo.Size())
	}

	compressed, err := os.Open(compressedPath)
	if err != nil {
		t.Fatalf("Failed to open compressed file: %v", err)
	}
	defer compressed.Close()

	if err := DecompressStream(compressed, decompressedPath); err != nil {
		t.Fatalf("DecompressStream failed: %v", err)
	}

	restored, err := os.ReadFile(decompressedPath)
	if err != nil {
		t.Fatalf("Failed to read decompressed file: %v", err)
	}
	if string(restored) != testData {
		t.Error("decompressed data does not match original")
	}
}

func TestCompressFile_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := CompressFile(filepath.Join(dir, "missing.db"), filepath.Join(dir, "out.zst")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestDecompressStream_InvalidData(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "out.db")
	if err := DecompressStream(bytes.NewReader([]byte("not zstd data")), dst); err == nil {
		t.Error("expected error for invalid zstd stream")
	}
}
