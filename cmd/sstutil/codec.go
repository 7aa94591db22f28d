// codec.go -- value codecs offered by the sstutil CLI
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opencoff/go-sstable"
)

// bytesReader/bytesWriter/bytesCodec give sstutil a concrete
// length-prefixed []byte value codec. The library itself ships no
// codec beyond sstable.VoidCodec, by design, so any concrete wire
// shape for values belongs to the caller.
type bytesReader struct{ v []byte }

func (r *bytesReader) Read(src sstable.Source) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(src, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return err
	}
	r.v = buf
	return nil
}

func (r *bytesReader) Value() *[]byte { return &r.v }

type bytesWriter struct{}

func (bytesWriter) Write(v *[]byte, dst io.Writer) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(*v)))
	if _, err := dst.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := dst.Write(*v)
	return err
}

type bytesCodec struct{}

func (bytesCodec) NewReader() sstable.ValueReader[[]byte] { return &bytesReader{} }
func (bytesCodec) NewWriter() sstable.ValueWriter[[]byte] { return bytesWriter{} }

// codecByName resolves the --codec flag / config value to one of
// sstutil's two supported value shapes.
func codecByName(name string) (string, error) {
	switch name {
	case "void", "bytes":
		return name, nil
	default:
		return "", fmt.Errorf("unknown value codec %q (want \"void\" or \"bytes\")", name)
	}
}
