// sstfile.go -- self-contained, checksummed table files on disk
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

// Package sstfile wraps a single sorted-table byte stream (as produced
// by the sstable package) in a small on-disk container: a fixed
// header, the table body, and a trailing checksum. It adds nothing to
// the wire format sstable itself defines -- it only gives that stream
// a safe home in a regular file.
package sstfile

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/dchest/siphash"
	"github.com/natefinch/atomic"
)

const (
	magic      = "SSTB"
	version    = 1
	headerSize = 32 // magic(4) + version(4) + salt(8) + bodyLen(8) + reserved(8)
	trailerSize = 8 // siphash-2-4 of the body, keyed by salt
)

// header is the fixed-size file preamble.
type header struct {
	version uint32
	salt    uint64
	bodyLen uint64
}

// Header words are written with encoding/binary alone, in canonical big
// endian order: this is a 32-byte preamble, not a word array read back
// through an mmap pointer cast, so there is no native-word fast path to
// buy by hand-rolling the conversion -- binary.BigEndian already
// produces the same bytes regardless of the host's own byte order.
func (h *header) encode() []byte {
	var b [headerSize]byte
	copy(b[:4], magic)
	binary.BigEndian.PutUint32(b[4:8], h.version)
	binary.BigEndian.PutUint64(b[8:16], h.salt)
	binary.BigEndian.PutUint64(b[16:24], h.bodyLen)
	return b[:]
}

func decodeHeader(b []byte) (*header, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("sstfile: short header")
	}
	if string(b[:4]) != magic {
		return nil, fmt.Errorf("sstfile: bad magic %q", b[:4])
	}
	h := &header{
		version: binary.BigEndian.Uint32(b[4:8]),
		salt:    binary.BigEndian.Uint64(b[8:16]),
		bodyLen: binary.BigEndian.Uint64(b[16:24]),
	}
	if h.version != version {
		return nil, fmt.Errorf("sstfile: unsupported version %d", h.version)
	}
	return h, nil
}

func randomSalt() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("sstfile: cannot read random salt: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}

// Writer accumulates a table body in memory and publishes it as a
// single table file atomically. It satisfies io.Writer, so a
// sstable.Writer/DeltaWriter can be pointed directly at it.
type Writer struct {
	path string
	salt uint64
	body bytes.Buffer
}

// NewWriter prepares a table file at path. Nothing is written to disk
// until Commit.
func NewWriter(path string) *Writer {
	return &Writer{path: path, salt: randomSalt()}
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.body.Write(p)
}

// Commit computes the checksum and atomically publishes the file.
func (w *Writer) Commit() error {
	h := &header{version: version, salt: w.salt, bodyLen: uint64(w.body.Len())}

	mac := siphash.New(saltKey(w.salt))
	mac.Write(w.body.Bytes())
	var sum [trailerSize]byte
	binary.BigEndian.PutUint64(sum[:], mac.Sum64())

	r := io.MultiReader(bytes.NewReader(h.encode()), bytes.NewReader(w.body.Bytes()), bytes.NewReader(sum[:]))
	return atomic.WriteFile(w.path, r)
}

func saltKey(salt uint64) []byte {
	var k [16]byte
	binary.BigEndian.PutUint64(k[:8], salt)
	binary.BigEndian.PutUint64(k[8:], ^salt)
	return k[:]
}

// Reader exposes a table file's body as an io.Reader for sequential
// reading, after verifying the header and checksum; wrap it with
// bufio.NewReader to get a sstable.Source.
type Reader struct {
	fd     *os.File
	mapped []byte // raw mmap'd region (header+body); Close unmaps exactly this
	body   []byte // the table body, a sub-slice of mapped, or nil if empty
	salt   uint64
	off    int
}

// Open opens, verifies, and mmaps a table file written by Writer.
func Open(path string) (*Reader, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rd, err := open(fd)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return rd, nil
}

func open(fd *os.File) (*Reader, error) {
	st, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("sstfile: stat: %w", err)
	}
	if st.Size() < headerSize+trailerSize {
		return nil, fmt.Errorf("sstfile: file too small to be a valid table")
	}

	var hb [headerSize]byte
	if _, err := io.ReadFull(fd, hb[:]); err != nil {
		return nil, fmt.Errorf("sstfile: read header: %w", err)
	}
	h, err := decodeHeader(hb[:])
	if err != nil {
		return nil, err
	}

	wantSize := int64(headerSize) + int64(h.bodyLen) + int64(trailerSize)
	if st.Size() != wantSize {
		return nil, fmt.Errorf("sstfile: size mismatch: header claims body of %d bytes, file is %d bytes", h.bodyLen, st.Size())
	}

	// mmap(2) requires a page-aligned offset, and headerSize (32) is not
	// one: map the whole header+body region starting at file offset 0,
	// which is page-aligned by definition, and slice the header back off
	// the front instead of asking the kernel to map mid-file.
	mapped, body, err := mmapBody(int(fd.Fd()), int(h.bodyLen))
	if err != nil {
		return nil, fmt.Errorf("sstfile: mmap: %w", err)
	}

	var sum [trailerSize]byte
	if _, err := fd.ReadAt(sum[:], wantSize-trailerSize); err != nil {
		munmapBytes(mapped)
		return nil, fmt.Errorf("sstfile: read checksum: %w", err)
	}
	mac := siphash.New(saltKey(h.salt))
	mac.Write(body)
	var want [trailerSize]byte
	binary.BigEndian.PutUint64(want[:], mac.Sum64())
	if !bytes.Equal(sum[:], want[:]) {
		munmapBytes(mapped)
		return nil, fmt.Errorf("sstfile: checksum mismatch")
	}

	return &Reader{fd: fd, mapped: mapped, body: body, salt: h.salt}, nil
}

// BodyLen returns the number of body bytes (the underlying sstable
// stream), excluding the header and trailing checksum.
func (r *Reader) BodyLen() int { return len(r.body) }

// Read implements io.Reader over the table body, for use as a
// sstable.Source when wrapped with bufio.NewReader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.off >= len(r.body) {
		return 0, io.EOF
	}
	n := copy(p, r.body[r.off:])
	r.off += n
	return n, nil
}

// Close unmaps the body and closes the underlying file.
func (r *Reader) Close() error {
	if err := munmapBytes(r.mapped); err != nil {
		r.fd.Close()
		return err
	}
	return r.fd.Close()
}

// mmapBody maps the header+body region of an open table file starting
// at offset 0 -- the only offset syscall.Mmap accepts without
// page-aligning it by hand -- and returns both the raw mapping, for
// Close to unmap, and the body sub-slice with the header trimmed off
// the front. There's no uint64 reinterpretation here: sstfile has no
// offset table to memory-map, only a flat byte body.
func mmapBody(fd int, bodyLen int) (mapped, body []byte, err error) {
	if bodyLen == 0 {
		return nil, nil, nil
	}
	mapped, err = syscall.Mmap(fd, 0, headerSize+bodyLen, syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return mapped, mapped[headerSize:], nil
}

func munmapBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return syscall.Munmap(b)
}
