package sstable

import (
	"bytes"
	"container/heap"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"testing"
)

// naiveHeapItem backs the straightforward baseline merge below: full
// keys are compared on every step instead of exploiting the common
// prefix already established by the priority queue's (cpl, next_byte)
// ordering.
type naiveHeapItem struct {
	key   []byte
	value VoidValue
	src   int
}

type naiveHeap []naiveHeapItem

func (h naiveHeap) Len() int            { return len(h) }
func (h naiveHeap) Less(i, j int) bool  { return bytes.Compare(h[i].key, h[j].key) < 0 }
func (h naiveHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *naiveHeap) Push(x any)         { *h = append(*h, x.(naiveHeapItem)) }
func (h *naiveHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// naiveMerge re-decodes each reader's full key on every step and keeps
// a standard container/heap ordered by bytes.Compare on the whole key,
// the way a merge that doesn't track common-prefix lengths would. It
// exists only to benchmark against Merge, not as part of the public
// surface.
func naiveMerge(sources []Source, sink io.Writer) error {
	readers := make([]*Reader[VoidValue], len(sources))
	h := &naiveHeap{}
	for i, src := range sources {
		readers[i] = NewReader[VoidValue](src, VoidCodec{})
		ok, err := readers[i].Advance()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, naiveHeapItem{key: append([]byte{}, readers[i].Key()...), src: i})
		}
	}

	w := NewWriter[VoidValue](sink, VoidCodec{})
	var lastKey []byte
	first := true
	for h.Len() > 0 {
		item := heap.Pop(h).(naiveHeapItem)
		if first || !bytes.Equal(item.key, lastKey) {
			if err := w.Write(item.key, &voidValue); err != nil {
				return err
			}
			lastKey = item.key
			first = false
		}
		ok, err := readers[item.src].Advance()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, naiveHeapItem{key: append([]byte{}, readers[item.src].Key()...), src: item.src})
		}
	}
	return w.Finalize()
}

func randomSortedKeys(n int, seed int64) []string {
	r := rand.New(rand.NewSource(seed))
	set := make(map[string]struct{}, n)
	for len(set) < n {
		buf := make([]byte, 4+r.Intn(12))
		for i := range buf {
			buf[i] = byte('a' + r.Intn(26))
		}
		set[string(buf)] = struct{}{}
	}
	keys := make([]string, 0, n)
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildBenchInputs(streamCount, keysPerStream int) [][]byte {
	tables := make([][]byte, streamCount)
	for i := 0; i < streamCount; i++ {
		keys := randomSortedKeys(keysPerStream, int64(i)+1)
		var buf bytes.Buffer
		w := NewWriter[VoidValue](&buf, VoidCodec{})
		for _, k := range keys {
			_ = w.Write([]byte(k), &voidValue)
		}
		_ = w.Finalize()
		tables[i] = buf.Bytes()
	}
	return tables
}

func benchmarkFastMerge(b *testing.B, streamCount, keysPerStream int) {
	tables := buildBenchInputs(streamCount, keysPerStream)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sources := make([]Source, streamCount)
		for j, t := range tables {
			sources[j] = newSource(t)
		}
		var out bytes.Buffer
		if err := Merge[VoidValue](sources, &out, VoidCodec{}, VoidMerge{}); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkNaiveMerge(b *testing.B, streamCount, keysPerStream int) {
	tables := buildBenchInputs(streamCount, keysPerStream)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sources := make([]Source, streamCount)
		for j, t := range tables {
			sources[j] = newSource(t)
		}
		var out bytes.Buffer
		if err := naiveMerge(sources, &out); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMergeFast_4x1000(b *testing.B)  { benchmarkFastMerge(b, 4, 1000) }
func BenchmarkMergeNaive_4x1000(b *testing.B) { benchmarkNaiveMerge(b, 4, 1000) }

func BenchmarkMergeFast_16x1000(b *testing.B)  { benchmarkFastMerge(b, 16, 1000) }
func BenchmarkMergeNaive_16x1000(b *testing.B) { benchmarkNaiveMerge(b, 16, 1000) }

func ExampleMerge_benchmarkShape() {
	fmt.Println("see BenchmarkMergeFast_4x1000 / BenchmarkMergeNaive_4x1000")
	// Output: see BenchmarkMergeFast_4x1000 / BenchmarkMergeNaive_4x1000
}
