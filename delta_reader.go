// delta_reader.go -- framed (keep, add, suffix, value) record reader
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package sstable

import (
	"errors"
	"fmt"
	"io"
)

// ErrMalformedTerminator is returned when a 0x00 header byte is not
// followed by a second 0x00 -- the only legal occurrence of 0x00 as a
// header byte past the first record is the start of the two-byte
// terminator.
var ErrMalformedTerminator = errors.New("sstable: malformed terminator")

// DeltaReader parses the framed record stream. It holds the most recent
// (keep, suffix) and the value reader's own state; it does not
// reconstruct the full key -- that's Reader's job.
type DeltaReader[V any] struct {
	r               Source
	keep            int
	suffix          []byte
	value           ValueReader[V]
	firstRecordRead bool
}

// NewDeltaReader wraps src (which must already support single-byte
// reads and a short peek, e.g. a *bufio.Reader) and pairs it with a
// value reader.
func NewDeltaReader[V any](src Source, value ValueReader[V]) *DeltaReader[V] {
	return &DeltaReader[V]{
		r:      src,
		suffix: make([]byte, 0, defaultKeyCapacity),
		value:  value,
	}
}

// headerKeepAdd decodes (keep, add) from a header whose first byte, b,
// is known not to be endCode -- i.e. either a short header or the long
// form sentinel.
func headerKeepAdd(r Source, b byte) (keep, add int, err error) {
	if b == longHeaderSentinel {
		k, err := DecodeVInt(r)
		if err != nil {
			return 0, 0, err
		}
		a, err := DecodeVInt(r)
		if err != nil {
			return 0, 0, err
		}
		return int(k), int(a), nil
	}
	return int(b & 0x0f), int(b >> 4), nil
}

// finishRecord decodes the suffix and value for a record whose header
// has already been consumed.
func (d *DeltaReader[V]) finishRecord(keep, add int) (bool, error) {
	d.keep = keep
	if cap(d.suffix) < add {
		d.suffix = make([]byte, add)
	} else {
		d.suffix = d.suffix[:add]
	}
	if _, err := io.ReadFull(d.r, d.suffix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, fmt.Errorf("sstable: suffix: %w", io.ErrUnexpectedEOF)
		}
		return false, err
	}
	if err := d.value.Read(d.r); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DeltaReader[V]) discard(n int) error {
	for i := 0; i < n; i++ {
		if _, err := d.r.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

// advanceFirst decodes the very first record of the stream. A leading
// 0x00 is ambiguous on its own: it's the first byte of both the
// two-byte terminator (an empty, zero-record stream) and the short
// header for keep=0, add=0 (a stream whose first key is the empty
// string). The two are distinguished by what follows: a stream is
// empty only if exactly two bytes, both zero, exist and nothing comes
// after them. Anything else starting with 0x00 is the empty-key
// record, and the bytes beyond the header belong to its value and the
// stream's real terminator.
func (d *DeltaReader[V]) advanceFirst() (bool, error) {
	peeked, peekErr := d.r.Peek(3)
	if len(peeked) == 0 {
		if peekErr != nil {
			return false, fmt.Errorf("sstable: header: %w", io.ErrUnexpectedEOF)
		}
		return false, peekErr
	}

	b := peeked[0]
	if b != endCode {
		if _, err := d.r.ReadByte(); err != nil {
			return false, err
		}
		keep, add, err := headerKeepAdd(d.r, b)
		if err != nil {
			return false, err
		}
		return d.finishRecord(keep, add)
	}

	if len(peeked) == 2 && peeked[1] == endCode {
		if err := d.discard(2); err != nil {
			return false, err
		}
		return false, nil
	}

	// Empty-key first record: consume only the header byte: the
	// remaining peeked bytes belong to the value (or, for a
	// zero-length value, to the real terminator read by the next
	// Advance call).
	if err := d.discard(1); err != nil {
		return false, err
	}
	return d.finishRecord(0, 0)
}

// advanceRest decodes any record after the first, where a leading 0x00
// is unambiguously the start of the terminator: by invariant, every
// record past the first has keep+add >= 1, so its header can never be
// 0x00.
func (d *DeltaReader[V]) advanceRest() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return false, fmt.Errorf("sstable: header: %w", io.ErrUnexpectedEOF)
		}
		return false, err
	}

	if b == endCode {
		b2, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return false, fmt.Errorf("sstable: terminator: %w", io.ErrUnexpectedEOF)
			}
			return false, err
		}
		if b2 != endCode {
			return false, ErrMalformedTerminator
		}
		return false, nil
	}

	keep, add, err := headerKeepAdd(d.r, b)
	if err != nil {
		return false, err
	}
	return d.finishRecord(keep, add)
}

// Advance reads the next record's (keep, suffix) and value. It returns
// false, nil once the stream's terminator is reached cleanly.
func (d *DeltaReader[V]) Advance() (bool, error) {
	if !d.firstRecordRead {
		d.firstRecordRead = true
		return d.advanceFirst()
	}
	return d.advanceRest()
}

// CommonPrefixLen returns the keep length of the most recently decoded
// record.
func (d *DeltaReader[V]) CommonPrefixLen() int {
	return d.keep
}

// Suffix returns the raw suffix bytes of the most recently decoded
// record. Valid until the next Advance.
func (d *DeltaReader[V]) Suffix() []byte {
	return d.suffix
}

// SuffixFrom projects the current key's bytes starting at offset,
// assuming offset >= CommonPrefixLen(). It's used by Merge to read a
// delta relative to a longer, previously-established common prefix.
func (d *DeltaReader[V]) SuffixFrom(offset int) []byte {
	return d.suffix[offset-d.keep:]
}

// Value returns the most recently decoded value. Valid until the next
// Advance.
func (d *DeltaReader[V]) Value() *V {
	return d.value.Value()
}
