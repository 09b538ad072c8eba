package compression

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// SymbolCount is the size of the byte alphabet.
const SymbolCount = 256

// ErrInputTooLarge is returned when an input holds more symbols than the
// 32-bit header count can represent.
var ErrInputTooLarge = errors.New("input too large to compress")

// FrequencyTable holds the occurrence count of every byte value in an input.
type FrequencyTable struct {
	Counts   [SymbolCount]uint32
	Total    uint32
	Distinct uint32
}

// Add counts one occurrence of b.
func (ft *FrequencyTable) Add(b byte) error {
	if ft.Total == math.MaxUint32 {
		return ErrInputTooLarge
	}
	if ft.Counts[b] == 0 {
		ft.Distinct++
	}
	ft.Counts[b]++
	ft.Total++
	return nil
}

// Write counts every byte of p, so a FrequencyTable can sit behind an
// io.TeeReader or io.MultiWriter.
func (ft *FrequencyTable) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := ft.Add(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// CountFrequencies reads r to the end and returns its frequency table.
func CountFrequencies(r io.Reader) (FrequencyTable, error) {
	var ft FrequencyTable
	if _, err := io.Copy(&ft, r); err != nil {
		return FrequencyTable{}, fmt.Errorf("cannot count frequencies: %w", err)
	}
	return ft, nil
}

// MarshalJSON encodes the non-zero counts as an object keyed by the decimal
// symbol value, e.g. {"97":5,"98":2}.
func (ft FrequencyTable) MarshalJSON() ([]byte, error) {
	counts := make(map[string]uint32, ft.Distinct)
	for symbol, count := range ft.Counts {
		if count != 0 {
			counts[strconv.Itoa(symbol)] = count
		}
	}
	return json.Marshal(counts)
}

// UnmarshalJSON decodes the form written by MarshalJSON and recomputes
// Total and Distinct.
func (ft *FrequencyTable) UnmarshalJSON(raw []byte) error {
	var counts map[string]uint32
	if err := json.Unmarshal(raw, &counts); err != nil {
		return err
	}

	var decoded FrequencyTable
	var total uint64
	for key, count := range counts {
		symbol, err := strconv.ParseUint(key, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid symbol %q in frequency table: %w", key, err)
		}
		if count == 0 {
			continue
		}
		decoded.Counts[symbol] = count
		decoded.Distinct++
		total += uint64(count)
	}
	if total > math.MaxUint32 {
		return ErrInputTooLarge
	}
	decoded.Total = uint32(total)

	*ft = decoded
	return nil
}

var (
	_ io.Writer        = (*FrequencyTable)(nil)
	_ json.Marshaler   = FrequencyTable{}
	_ json.Unmarshaler = (*FrequencyTable)(nil)
)
