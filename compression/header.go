package compression

import (
	"errors"
	"fmt"
)

// ErrMalformedHeader is returned when a compressed stream does not start
// with a consistent header.
var ErrMalformedHeader = errors.New("malformed header")

// WriteHeader writes the symbol totals followed by one (symbol, frequency)
// pair per occurring symbol, in ascending symbol order.
func WriteHeader(w *Writer, ft FrequencyTable) error {
	if err := w.WriteUint32(ft.Total); err != nil {
		return err
	}
	if err := w.WriteUint32(ft.Distinct); err != nil {
		return err
	}
	for symbol, count := range ft.Counts {
		if count == 0 {
			continue
		}
		if err := w.WriteByte(byte(symbol)); err != nil {
			return err
		}
		if err := w.WriteUint32(count); err != nil {
			return err
		}
	}
	return nil
}

// ReadHeader reads a header written by WriteHeader and rebuilds the
// frequency table. Counts that contradict each other are rejected with
// ErrMalformedHeader.
func ReadHeader(r *Reader) (FrequencyTable, error) {
	var ft FrequencyTable

	total, err := r.ReadUint32()
	if err != nil {
		return ft, fmt.Errorf("%w: cannot read symbol count: %w", ErrMalformedHeader, err)
	}
	distinct, err := r.ReadUint32()
	if err != nil {
		return ft, fmt.Errorf("%w: cannot read distinct symbol count: %w", ErrMalformedHeader, err)
	}
	if distinct > SymbolCount {
		return ft, fmt.Errorf("%w: %d distinct symbols, max %d", ErrMalformedHeader, distinct, SymbolCount)
	}

	var sum uint64
	for i := uint32(0); i < distinct; i++ {
		symbol, err := r.ReadByte()
		if err != nil {
			return ft, fmt.Errorf("%w: cannot read symbol %d: %w", ErrMalformedHeader, i, err)
		}
		count, err := r.ReadUint32()
		if err != nil {
			return ft, fmt.Errorf("%w: cannot read frequency of symbol %d: %w", ErrMalformedHeader, symbol, err)
		}
		if count == 0 {
			return ft, fmt.Errorf("%w: symbol %d listed with zero frequency", ErrMalformedHeader, symbol)
		}
		if ft.Counts[symbol] != 0 {
			return ft, fmt.Errorf("%w: symbol %d listed twice", ErrMalformedHeader, symbol)
		}
		ft.Counts[symbol] = count
		sum += uint64(count)
	}
	if sum != uint64(total) {
		return ft, fmt.Errorf("%w: frequencies sum to %d, expected %d", ErrMalformedHeader, sum, total)
	}

	ft.Total = total
	ft.Distinct = distinct
	return ft, nil
}
