package sstfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "t0.sst")

	body := []byte("this is a sorted-table body, opaque to sstfile")

	w := NewWriter(path)
	n, err := w.Write(body)
	require.NoError(err)
	require.Equal(len(body), n)
	require.NoError(w.Commit())

	rd, err := Open(path)
	require.NoError(err)
	defer rd.Close()

	require.Equal(len(body), rd.BodyLen())

	var got bytes.Buffer
	buf := make([]byte, 7)
	for {
		n, err := rd.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	require.Equal(body, got.Bytes())
}

func TestWriterEmptyBody(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.sst")

	w := NewWriter(path)
	require.NoError(w.Commit())

	rd, err := Open(path)
	require.NoError(err)
	defer rd.Close()

	require.Equal(0, rd.BodyLen())

	buf := make([]byte, 4)
	n, err := rd.Read(buf)
	require.Equal(0, n)
	require.Error(err)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sst")
	require.NoError(os.WriteFile(path, bytes.Repeat([]byte{0x42}, headerSize+trailerSize), 0644))

	_, err := Open(path)
	require.Error(err)
}

func TestOpenRejectsCorruptedBody(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "trunc.sst")

	w := NewWriter(path)
	_, err := w.Write([]byte("hello world"))
	require.NoError(err)
	require.NoError(w.Commit())

	raw, err := os.ReadFile(path)
	require.NoError(err)

	// flip a byte in the body so the checksum no longer matches.
	raw[headerSize] ^= 0xff
	require.NoError(os.WriteFile(path, raw, 0644))

	_, err = Open(path)
	require.Error(err)
}

func TestCommitReplacesPreviousVersion(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "atomic.sst")

	// Publish a first version, then a second, larger version at the
	// same path; opening the path afterwards yields the second body.
	w1 := NewWriter(path)
	_, err := w1.Write([]byte("v1"))
	require.NoError(err)
	require.NoError(w1.Commit())

	w2 := NewWriter(path)
	_, err = w2.Write([]byte(fmt.Sprintf("v2-%s", string(bytes.Repeat([]byte{'x'}, 64)))))
	require.NoError(err)
	require.NoError(w2.Commit())

	rd, err := Open(path)
	require.NoError(err)
	defer rd.Close()

	got := make([]byte, rd.BodyLen())
	_, err = rd.Read(got)
	require.NoError(err)
	require.Contains(string(got), "v2-")
}
