package main

import (
	"bufio"
	"io"
	"os"

	"github.com/opencoff/go-sstable"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func newSourceFromReader(r io.Reader) sstable.Source {
	return bufio.NewReader(r)
}
