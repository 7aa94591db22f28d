// merge.go -- sstutil merge: N table files -> one, first input wins ties
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/opencoff/go-sstable"
	"github.com/opencoff/go-sstable/internal/sstconfig"
	"github.com/opencoff/go-sstable/internal/sstfile"
)

// doMerge merges inputs into out using sstable.KeepFirst semantics:
// the first listed input wins on duplicate keys. When len(inputs)
// exceeds cfg.MaxOpenTables, inputs are merged in capacity-sized
// batches whose outputs are merged again, bounding concurrently open
// table file descriptors to cfg.MaxOpenTables regardless of how many
// inputs are given.
func doMerge(out string, inputs []string, cfg sstconfig.Config) error {
	name, err := codecByName(cfg.ValueCodec)
	if err != nil {
		return err
	}
	if cfg.MaxOpenTables < 2 {
		return fmt.Errorf("max open tables must be at least 2, got %d", cfg.MaxOpenTables)
	}

	paths := inputs
	var tmpFiles []string
	defer func() {
		for _, f := range tmpFiles {
			os.Remove(f)
		}
	}()

	for round := 0; len(paths) > cfg.MaxOpenTables; round++ {
		var next []string
		for i := 0; i < len(paths); i += cfg.MaxOpenTables {
			end := i + cfg.MaxOpenTables
			if end > len(paths) {
				end = len(paths)
			}
			batch := paths[i:end]
			tmp := fmt.Sprintf("%s.round%d.batch%d.tmp", out, round, i)
			if err := mergeBatch(batch, tmp, name); err != nil {
				return fmt.Errorf("merge batch %v: %w", batch, err)
			}
			next = append(next, tmp)
			tmpFiles = append(tmpFiles, tmp)
		}
		paths = next
	}

	if err := mergeBatch(paths, out, name); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "sstutil: merge: wrote %s from %d input(s)\n", out, len(inputs))
	return nil
}

func mergeBatch(paths []string, out string, codec string) error {
	readers := make([]*sstfile.Reader, 0, len(paths))
	sources := make([]sstable.Source, 0, len(paths))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	for _, p := range paths {
		rd, err := sstfile.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		readers = append(readers, rd)
		sources = append(sources, bufio.NewReader(rd))
	}

	w := sstfile.NewWriter(out)

	var mergeErr error
	switch codec {
	case "void":
		mergeErr = sstable.Merge[sstable.VoidValue](sources, w, sstable.VoidCodec{}, sstable.VoidMerge{})
	case "bytes":
		mergeErr = sstable.Merge[[]byte](sources, w, bytesCodec{}, sstable.KeepFirst[[]byte]{})
	}
	if mergeErr != nil {
		return mergeErr
	}
	return w.Commit()
}
