// build.go -- sstutil build: text files -> a table file
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/opencoff/go-sstable"
	"github.com/opencoff/go-sstable/internal/sstfile"
)

type kv struct {
	key []byte
	val []byte
}

// readTextPairs reads whitespace-delimited "key value" lines the way
// the teacher's AddTextStream/AddTextFile do, except it tolerates a
// missing value (treated as empty) instead of requiring exactly two
// fields.
func readTextPairs(r io.Reader) ([]kv, error) {
	var out []kv
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := line
		var val string
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			key = line[:i]
			val = strings.TrimSpace(line[i+1:])
		}
		out = append(out, kv{key: []byte(key), val: []byte(val)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func readAllPairs(files []string) ([]kv, error) {
	if len(files) == 0 {
		return readTextPairs(os.Stdin)
	}

	var all []kv
	for _, f := range files {
		fh, err := os.Open(f)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f, err)
		}
		pairs, err := readTextPairs(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		all = append(all, pairs...)
	}
	return all, nil
}

// doBuild sorts the (key, value) pairs read from inputs and writes
// them to a table file at out using the given value codec name.
func doBuild(out string, inputs []string, codec string) error {
	name, err := codecByName(codec)
	if err != nil {
		return err
	}

	pairs, err := readAllPairs(inputs)
	if err != nil {
		return err
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})

	w := sstfile.NewWriter(out)

	var finalize func() error
	var writeOne func(kv) error
	switch name {
	case "void":
		sw := sstable.NewWriter[sstable.VoidValue](w, sstable.VoidCodec{})
		writeOne = func(p kv) error {
			var v sstable.VoidValue
			return sw.Write(p.key, &v)
		}
		finalize = sw.Finalize
	case "bytes":
		sw := sstable.NewWriter[[]byte](w, bytesCodec{})
		writeOne = func(p kv) error { return sw.Write(p.key, &p.val) }
		finalize = sw.Finalize
	}

	n, err := writeDeduped(pairs, writeOne)
	if err != nil {
		return err
	}
	if err := finalize(); err != nil {
		return err
	}
	if err := w.Commit(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "sstutil: build: %s: %d records\n", out, n)
	return nil
}

// writeDeduped calls write for every pair whose key differs from the
// previous one (sstable.Writer rejects repeated keys outright), and
// reports how many records were written.
func writeDeduped(pairs []kv, write func(kv) error) (int, error) {
	var last []byte
	first := true
	var n int
	for _, p := range pairs {
		if !first && bytes.Equal(p.key, last) {
			fmt.Fprintf(os.Stderr, "sstutil: build: duplicate key %q, keeping first occurrence\n", p.key)
			continue
		}
		if err := write(p); err != nil {
			return n, err
		}
		last = p.key
		first = false
		n++
	}
	return n, nil
}
