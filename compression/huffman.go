// Package compression implements a static, byte-oriented Huffman codec.
//
// A compressed stream starts with a header holding the number of encoded
// symbols, the number of distinct symbols and one (symbol, frequency) pair
// per distinct symbol, all integers as big-endian uint32. The Huffman codes
// follow, most significant bit first, with the final byte padded with zero
// bits. The decoder rebuilds the exact tree the encoder used from the
// header alone.
package compression

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	// ErrTableMismatch is returned when an input does not agree with the
	// frequency table it is being encoded with.
	ErrTableMismatch = errors.New("input does not match frequency table")

	// ErrTruncatedStream is returned when a compressed stream ends before
	// all symbols announced by its header have been decoded.
	ErrTruncatedStream = errors.New("compressed stream ended early")

	// ErrInvalidCode is returned when the bitstream walks off the tree.
	ErrInvalidCode = errors.New("invalid Huffman code")
)

// Codebook holds the code table derived from one frequency table. The tree
// it was built from is dropped once the codes are known.
type Codebook struct {
	freqs FrequencyTable
	codes CodeTable
}

// NewCodebook builds the Huffman tree for ft and derives its code table.
func NewCodebook(ft FrequencyTable) *Codebook {
	tree := BuildTree(ft)
	cb := &Codebook{
		freqs: ft,
		codes: BuildCodeTable(tree),
	}
	slog.Debug("Built Huffman code table", "symbols", ft.Total, "distinct", ft.Distinct, "leaves", tree.Leaves())
	return cb
}

// Frequencies returns the table the codebook was built from.
func (cb *Codebook) Frequencies() FrequencyTable {
	return cb.freqs
}

// Codes returns the code table.
func (cb *Codebook) Codes() CodeTable {
	return cb.codes
}

// Encode writes the header and the encoded form of src to dst. src must
// contain exactly the symbols counted in the codebook's frequency table.
func (cb *Codebook) Encode(src io.Reader, dst io.Writer) error {
	w := NewWriter(dst)
	if err := cb.encode(NewReader(src), w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (cb *Codebook) encode(r *Reader, w *Writer) error {
	if err := WriteHeader(w, cb.freqs); err != nil {
		return fmt.Errorf("cannot write header: %w", err)
	}

	var encoded uint32
	for r.HasNextByte() {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		code := cb.codes[b]
		if code == "" || encoded == cb.freqs.Total {
			return fmt.Errorf("%w: unexpected symbol %d", ErrTableMismatch, b)
		}
		for i := 0; i < len(code); i++ {
			bit := Bit0
			if code[i] == '1' {
				bit = Bit1
			}
			if err := w.WriteBit(bit); err != nil {
				return err
			}
		}
		encoded++
	}
	if err := r.Err(); err != nil {
		return err
	}
	if encoded != cb.freqs.Total {
		return fmt.Errorf("%w: encoded %d symbols, expected %d", ErrTableMismatch, encoded, cb.freqs.Total)
	}
	return nil
}

// Compress reads src twice, once to count symbol frequencies and once to
// encode it, and writes the compressed form to dst.
func Compress(src io.ReadSeeker, dst io.Writer) error {
	ft, err := CountFrequencies(src)
	if err != nil {
		return err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("cannot rewind input: %w", err)
	}
	return NewCodebook(ft).Encode(src, dst)
}

// CompressFile compresses the file at inPath into a new file at outPath,
// replacing any existing file.
func CompressFile(inPath, outPath string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("cannot open input file %q: %w", inPath, err)
	}
	ft, err := CountFrequencies(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}
	cb := NewCodebook(ft)

	in, err := OpenInput(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := OpenOutput(outPath)
	if err != nil {
		return err
	}
	if err := cb.encode(in, out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	slog.Debug("Compressed file", "input", inPath, "output", outPath, "symbols", ft.Total)
	return nil
}

// Decompress decodes the compressed stream src into dst.
func Decompress(src io.Reader, dst io.Writer) error {
	w := NewWriter(dst)
	if _, err := decode(NewReader(src), w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// DecompressFile decompresses the file at inPath into a new file at
// outPath, replacing any existing file.
func DecompressFile(inPath, outPath string) error {
	in, err := OpenInput(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := OpenOutput(outPath)
	if err != nil {
		return err
	}
	ft, err := decode(in, out)
	if err != nil {
		out.Close()
		return fmt.Errorf("%s: %w", inPath, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	slog.Debug("Decompressed file", "input", inPath, "output", outPath, "symbols", ft.Total)
	return nil
}

// decode reads the header, rebuilds the tree and walks it one bit at a
// time, emitting a symbol at each leaf. It stops after the number of
// symbols recorded in the header; trailing padding bits are never read.
func decode(r *Reader, w *Writer) (FrequencyTable, error) {
	ft, err := ReadHeader(r)
	if err != nil {
		return ft, err
	}
	tree := BuildTree(ft)

	current := tree.root
	for remaining := ft.Total; remaining > 0; {
		if !r.HasNextBit() {
			if err := r.Err(); err != nil {
				return ft, err
			}
			return ft, fmt.Errorf("%w: %d of %d symbols missing", ErrTruncatedStream, remaining, ft.Total)
		}
		bit, err := r.ReadBit()
		if err != nil {
			return ft, err
		}

		if bit == Bit0 {
			current = current.left
		} else {
			current = current.right
		}
		if current == nil {
			return ft, ErrInvalidCode
		}

		if current.isLeaf() {
			if err := w.WriteByte(byte(current.symbol)); err != nil {
				return ft, err
			}
			remaining--
			current = tree.root
		}
	}
	return ft, nil
}
