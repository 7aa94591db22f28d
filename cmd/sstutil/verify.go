// verify.go -- sstutil verify: header + checksum check
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package main

import (
	"fmt"
	"os"

	lru "github.com/opencoff/golang-lru"

	"github.com/opencoff/go-sstable/internal/humansize"
	"github.com/opencoff/go-sstable/internal/sstfile"
)

// doVerify opens, checksums, and reports on each path. Paths repeated
// on the command line (for example by overlapping glob patterns) are
// checksummed only once; paths are compared as given, so a symlink and
// its target are checked separately. An
// ARCCache of already-verified paths plays the same role dbreader.go's
// record cache plays for decoded records, here remembering whole-table
// verification outcomes instead.
func doVerify(paths []string) error {
	seen, err := lru.NewARC(1024)
	if err != nil {
		return err
	}

	var failures int
	for _, p := range paths {
		if _, ok := seen.Get(p); ok {
			fmt.Fprintf(os.Stderr, "sstutil: verify: %s already checked, skipping\n", p)
			continue
		}

		rd, err := sstfile.Open(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sstutil: verify: %s: %s\n", p, err)
			failures++
			seen.Add(p, false)
			continue
		}

		fmt.Printf("%s: ok, %s body\n", p, humansize.String(uint64(rd.BodyLen())))
		rd.Close()
		seen.Add(p, true)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d table(s) failed verification", failures, len(paths))
	}
	return nil
}
