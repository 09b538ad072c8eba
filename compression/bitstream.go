package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/icza/bitio"
)

// bufferSize is the block size used between the bit layer and the file.
const bufferSize = 4096

// Bit is a single bit of a Huffman code.
type Bit uint8

const (
	Bit0 Bit = 0
	Bit1 Bit = 1
)

// Reader reads bytes, bits and big-endian 32-bit integers from a stream.
// Bits are delivered most significant first. A Reader is not safe for
// concurrent use, but independent Readers share no state.
type Reader struct {
	src    *bufio.Reader
	bits   *bitio.Reader
	offset uint8 // bits consumed from the current byte
	err    error
	closer io.Closer
	name   string
}

// NewReader returns a Reader over r. Closing the Reader does not close r.
func NewReader(r io.Reader) *Reader {
	src := bufio.NewReaderSize(r, bufferSize)
	return &Reader{
		src:  src,
		bits: bitio.NewReader(src),
		name: "stream",
	}
}

// OpenInput opens the named file for reading.
func OpenInput(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input file %q: %w", path, err)
	}
	r := NewReader(f)
	r.closer = f
	r.name = path
	return r, nil
}

// HasNextByte reports whether at least one more byte can be read.
func (r *Reader) HasNextByte() bool {
	if r.err != nil {
		return false
	}
	if _, err := r.src.Peek(1); err != nil {
		if !errors.Is(err, io.EOF) {
			r.err = fmt.Errorf("error reading %q: %w", r.name, err)
		}
		return false
	}
	return true
}

// HasNextBit reports whether at least one more bit can be read.
func (r *Reader) HasNextBit() bool {
	return r.offset != 0 || r.HasNextByte()
}

// ReadByte reads the next 8 bits as a byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.bits.ReadByte()
	if err != nil {
		return 0, r.fail(err)
	}
	return b, nil
}

// ReadBit reads the next bit, moving on to the next byte once the current
// one is exhausted.
func (r *Reader) ReadBit() (Bit, error) {
	set, err := r.bits.ReadBool()
	if err != nil {
		return Bit0, r.fail(err)
	}
	r.offset = (r.offset + 1) % 8
	if set {
		return Bit1, nil
	}
	return Bit0, nil
}

// ReadUint32 reads 4 bytes as a big-endian unsigned integer.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.bits.ReadBits(32)
	if err != nil {
		return 0, r.fail(err)
	}
	return uint32(v), nil
}

// Err returns the first non-EOF error met while probing for more input.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	if err != nil {
		return fmt.Errorf("cannot close input file %q: %w", r.name, err)
	}
	return nil
}

func (r *Reader) fail(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return fmt.Errorf("error reading %q: %w", r.name, err)
}

// Writer writes bytes, bits and big-endian 32-bit integers to a stream.
// Bits are accumulated most significant first; a byte is emitted once 8
// bits have been written.
type Writer struct {
	dst    *bufio.Writer
	bits   *bitio.Writer
	closer io.Closer
	name   string
}

// NewWriter returns a Writer over w. Closing the Writer flushes pending
// data but does not close w.
func NewWriter(w io.Writer) *Writer {
	dst := bufio.NewWriterSize(w, bufferSize)
	return &Writer{
		dst:  dst,
		bits: bitio.NewWriter(dst),
		name: "stream",
	}
}

// OpenOutput creates or truncates the named file for writing.
func OpenOutput(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open output file %q: %w", path, err)
	}
	w := NewWriter(f)
	w.closer = f
	w.name = path
	return w, nil
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(b Bit) error {
	if err := w.bits.WriteBool(b == Bit1); err != nil {
		return w.fail(err)
	}
	return nil
}

// WriteByte appends 8 bits.
func (w *Writer) WriteByte(b byte) error {
	if err := w.bits.WriteByte(b); err != nil {
		return w.fail(err)
	}
	return nil
}

// WriteUint32 appends v as 4 bytes, most significant byte first.
func (w *Writer) WriteUint32(v uint32) error {
	if err := w.bits.WriteBits(uint64(v), 32); err != nil {
		return w.fail(err)
	}
	return nil
}

// Close pads a partially filled last byte with zero bits, flushes the
// buffer and closes the underlying file if the Writer owns one.
func (w *Writer) Close() error {
	err := w.bits.Close()
	if err == nil {
		err = w.dst.Flush()
	}
	if err != nil {
		err = w.fail(err)
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("cannot close output file %q: %w", w.name, cerr)
		}
		w.closer = nil
	}
	return err
}

func (w *Writer) fail(err error) error {
	return fmt.Errorf("error writing %q: %w", w.name, err)
}
