// main.go -- sstinspect: step through a table file one record at a time
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/opencoff/go-sstable"
	"github.com/opencoff/go-sstable/internal/humansize"
	"github.com/opencoff/go-sstable/internal/sstfile"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s TABLE-FILE\n", os.Args[0])
		os.Exit(1)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "sstinspect: %s\n", err)
		os.Exit(1)
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sstinspect_history")
}

// repl steps a sstable.Reader one record at a time. It deliberately
// offers no seeking or random access: the underlying stream only
// supports sequential advancement.
type repl struct {
	rd   *sstable.Reader[sstable.VoidValue]
	n    int
	done bool
}

func run(path string) error {
	tf, err := sstfile.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer tf.Close()

	src := bufio.NewReader(tf)
	r := &repl{rd: sstable.NewReader[sstable.VoidValue](src, sstable.VoidCodec{})}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("sstinspect - %s (%s body)\n", path, humansize.String(uint64(tf.BodyLen())))
	fmt.Println("Commands: n/next, k/key, q/quit")

	for {
		line, err := ln.Prompt("sstinspect> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		switch strings.ToLower(line) {
		case "n", "next":
			r.next()
		case "k", "key":
			r.printKey()
		case "q", "quit", "exit":
			saveHistory(ln)
			return nil
		default:
			fmt.Printf("unknown command %q (n/next, k/key, q/quit)\n", line)
		}
	}

	saveHistory(ln)
	return nil
}

func (r *repl) next() {
	if r.done {
		fmt.Println("(end of table)")
		return
	}
	ok, err := r.rd.Advance()
	if err != nil {
		fmt.Printf("error: %s\n", err)
		r.done = true
		return
	}
	if !ok {
		r.done = true
		fmt.Println("(end of table)")
		return
	}
	r.n++
	fmt.Printf("[%d] %q\n", r.n, r.rd.Key())
}

func (r *repl) printKey() {
	if r.n == 0 {
		fmt.Println("(no record read yet; use n/next)")
		return
	}
	fmt.Printf("[%d] %q\n", r.n, r.rd.Key())
}

func saveHistory(ln *liner.State) {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		ln.WriteHistory(f)
		f.Close()
	}
}
