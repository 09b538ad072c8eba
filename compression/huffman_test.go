package compression

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "original.txt")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// roundTripCheck compresses and decompresses input through real files and
// returns the compressed bytes.
func roundTripCheck(t *testing.T, input []byte) []byte {
	t.Helper()
	inputPath := writeTempFile(t, input)
	compressedPath := inputPath + ".huf"
	outputPath := inputPath + ".out"

	require.NoError(t, CompressFile(inputPath, compressedPath))
	require.NoError(t, DecompressFile(compressedPath, outputPath))

	output, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.True(t, bytes.Equal(input, output), "round trip changed the content")

	compressed, err := os.ReadFile(compressedPath)
	require.NoError(t, err)
	return compressed
}

func TestCompressDecompress_Basic(t *testing.T) {
	roundTripCheck(t, []byte("simple roundtrip"))
}

func TestCompressDecompress_Empty(t *testing.T) {
	compressed := roundTripCheck(t, nil)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, compressed)
}

func TestCompressDecompress_SingleSymbol(t *testing.T) {
	compressed := roundTripCheck(t, []byte("aaaa"))
	expect := []byte{
		0, 0, 0, 4, // total
		0, 0, 0, 1, // distinct
		'a', 0, 0, 0, 4,
		0x00, // "0000" padded
	}
	require.Equal(t, expect, compressed)
}

func TestCompressDecompress_Abracadabra(t *testing.T) {
	compressed := roundTripCheck(t, []byte("abracadabra"))
	expect := []byte{
		0, 0, 0, 11,
		0, 0, 0, 5,
		'a', 0, 0, 0, 5,
		'b', 0, 0, 0, 2,
		'c', 0, 0, 0, 1,
		'd', 0, 0, 0, 1,
		'r', 0, 0, 0, 2,
		0x6e, 0x8a, 0xdc,
	}
	require.Equal(t, expect, compressed)
}

func TestCompressDecompress_Repetitive(t *testing.T) {
	roundTripCheck(t, []byte(strings.Repeat("ab", 1000)))
}

func TestCompressDecompress_Large(t *testing.T) {
	roundTripCheck(t, []byte(strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 20000)))
}

func TestCompressDecompress_Binary(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	input := make([]byte, 1<<16)
	for i := range input {
		// skewed towards low values so code lengths differ
		input[i] = byte(rng.Intn(256) * rng.Intn(256) / 256)
	}
	roundTripCheck(t, input)
}

func TestCompressDecompress_UTF8(t *testing.T) {
	sampleChunk := `
# Title: 多言語テスト 🧪
This	is	a	test	line	with	tabs	and	foreign	chars.	中文行
Another line with emoji 🚀 and Cyrillic: Пример строки.
`
	roundTripCheck(t, []byte(strings.Repeat(sampleChunk, 100)))
}

func TestCompress_HeaderConsistency(t *testing.T) {
	input := []byte("header consistency check: every byte counted once")
	var out bytes.Buffer
	require.NoError(t, Compress(bytes.NewReader(input), &out))

	r := NewReader(&out)
	ft, err := ReadHeader(r)
	require.NoError(t, err)
	require.Equal(t, uint32(len(input)), ft.Total)

	var sum, nonZero uint32
	for _, count := range ft.Counts {
		sum += count
		if count != 0 {
			nonZero++
		}
	}
	require.Equal(t, ft.Total, sum)
	require.Equal(t, ft.Distinct, nonZero)

	expect, err := CountFrequencies(bytes.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, expect, ft)
}

func TestCompress_Deterministic(t *testing.T) {
	input := []byte(strings.Repeat("determinism matters; ties must break the same way ", 50))

	var first, second bytes.Buffer
	require.NoError(t, Compress(bytes.NewReader(input), &first))
	require.NoError(t, Compress(bytes.NewReader(input), &second))
	require.Equal(t, first.Bytes(), second.Bytes())

	path := writeTempFile(t, input)
	require.NoError(t, CompressFile(path, path+".huf"))
	fromFile, err := os.ReadFile(path + ".huf")
	require.NoError(t, err)
	require.Equal(t, first.Bytes(), fromFile)
}

func TestCompressFile_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	err := CompressFile(filepath.Join(dir, "non_existent_file.txt"), filepath.Join(dir, "out.huf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompressFile_UnwritableOutput(t *testing.T) {
	path := writeTempFile(t, []byte("data"))
	err := CompressFile(path, filepath.Join(t.TempDir(), "missing", "out.huf"))
	require.Error(t, err)
}

func TestDecompressFile_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	err := DecompressFile(filepath.Join(dir, "nonexistent.huf"), filepath.Join(dir, "out"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecompress_MalformedHeader(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"short total", []byte{0, 0, 1}},
		{"too many distinct", []byte{0, 0, 0, 1, 0, 0, 1, 1}},
		{"missing pairs", []byte{0, 0, 0, 2, 0, 0, 0, 1}},
		{"sum mismatch", []byte{0, 0, 0, 3, 0, 0, 0, 1, 'a', 0, 0, 0, 2, 0}},
		{"zero frequency", []byte{0, 0, 0, 0, 0, 0, 0, 1, 'a', 0, 0, 0, 0}},
		{"duplicate symbol", []byte{0, 0, 0, 2, 0, 0, 0, 2, 'a', 0, 0, 0, 1, 'a', 0, 0, 0, 1, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Decompress(bytes.NewReader(tc.input), io.Discard)
			require.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}

func TestDecompress_TruncatedStream(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Compress(strings.NewReader(strings.Repeat("abcdefgh", 64)), &out))

	truncated := out.Bytes()[:out.Len()-10]
	err := Decompress(bytes.NewReader(truncated), io.Discard)
	require.ErrorIs(t, err, ErrTruncatedStream)
}

func TestDecompress_InvalidCode(t *testing.T) {
	// single-symbol tree only has a left branch
	input := []byte{0, 0, 0, 1, 0, 0, 0, 1, 'a', 0, 0, 0, 1, 0x80}
	err := Decompress(bytes.NewReader(input), io.Discard)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestDecompress_IgnoresPadding(t *testing.T) {
	// "aaaa" followed by padding bits set to one
	input := []byte{0, 0, 0, 4, 0, 0, 0, 1, 'a', 0, 0, 0, 4, 0x0f}
	var out bytes.Buffer
	require.NoError(t, Decompress(bytes.NewReader(input), &out))
	require.Equal(t, "aaaa", out.String())
}

func TestCodebook_Encode(t *testing.T) {
	input := "abracadabra"
	cb := NewCodebook(mustCount(t, input))

	var viaCodebook, viaCompress bytes.Buffer
	require.NoError(t, cb.Encode(strings.NewReader(input), &viaCodebook))
	require.NoError(t, Compress(strings.NewReader(input), &viaCompress))
	require.Equal(t, viaCompress.Bytes(), viaCodebook.Bytes())

	var out bytes.Buffer
	require.NoError(t, Decompress(&viaCodebook, &out))
	require.Equal(t, input, out.String())
}

func TestCodebook_EncodeMismatch(t *testing.T) {
	cb := NewCodebook(mustCount(t, "abracadabra"))

	testCases := []struct {
		name  string
		input string
	}{
		{"unknown symbol", "abracadabrz"},
		{"too long", "abracadabraa"},
		{"too short", "abracadabr"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := cb.Encode(strings.NewReader(tc.input), io.Discard)
			require.ErrorIs(t, err, ErrTableMismatch)
		})
	}
}
