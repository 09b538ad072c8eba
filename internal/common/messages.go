package common

import (
	"fmt"
	"strings"
)

// CompressedFileExt is the extension of files produced by the compressor.
const CompressedFileExt = ".huf"

// OutputName derives the name of the file produced from input. Compressing
// appends CompressedFileExt; decompressing strips it, or appends ".out" when
// the input does not carry it.
func OutputName(input string, decode bool) string {
	if !decode {
		return input + CompressedFileExt
	}
	if trimmed, ok := strings.CutSuffix(input, CompressedFileExt); ok && trimmed != "" {
		return trimmed
	}
	return input + ".out"
}

// Must follow this schema to be accepted by Pub/Sub
type CompressedMsgSchema struct {
	UID              string `json:"UID"`
	OriginalFilePath string `json:"OriginalFilePath"`
	FreqTablePath    string `json:"FreqTablePath"`
	// Checksum is the xxhash64 of the original upload.
	Checksum uint64 `json:"Checksum"`
}

// Must follow this schema to be accepted by Pub/Sub
type DecompressedMsgSchema struct {
	UID                string `json:"UID"`
	CompressedFilePath string `json:"CompressedFilePath"`
}

func OriginalFilePath(jobID, filename string) string {
	return fmt.Sprintf("%s/original_%s", jobID, filename)
}

func FreqTablePath(jobID string) string {
	return fmt.Sprintf("%s/frequency_table.json", jobID)
}

func UploadedFilePath(jobID, filename string) string {
	return fmt.Sprintf("%s/%s", jobID, filename)
}

// CompressedResultPath is where the worker stores the output of a compress job.
func CompressedResultPath(jobID string) string {
	return fmt.Sprintf("%s/compressed%s", jobID, CompressedFileExt)
}

// DecompressedResultPath is where the worker stores the output of a
// decompress job.
func DecompressedResultPath(jobID string) string {
	return fmt.Sprintf("%s/file.out", jobID)
}
