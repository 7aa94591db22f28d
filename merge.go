// merge.go -- prefix-aware N-way merge of delta-encoded streams
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package sstable

import (
	"bytes"
	"container/heap"
	"io"
	"sort"
)

// SingleValueMerger accumulates one output value from a group of input
// values sharing the same key.
type SingleValueMerger[V any] interface {
	Add(v *V)
	Finish() V
}

// ValueMerger begins accumulation for a new key group, seeded with its
// first value.
type ValueMerger[V any] interface {
	NewValue(v *V) SingleValueMerger[V]
}

// VoidMerge is the ValueMerger for VoidValue: Add is a no-op and
// Finish returns the unit value.
type VoidMerge struct{}

func (VoidMerge) NewValue(*VoidValue) SingleValueMerger[VoidValue] { return voidSingleMerger{} }

type voidSingleMerger struct{}

func (voidSingleMerger) Add(*VoidValue)      {}
func (voidSingleMerger) Finish() VoidValue   { return voidValue }

// KeepFirst retains the seed value of a group and ignores subsequent
// duplicates -- the merger used by Merge to implement "the value from
// the lowest-indexed stream containing this key".
type KeepFirst[V any] struct{}

func (KeepFirst[V]) NewValue(v *V) SingleValueMerger[V] {
	return &keepFirstSingle[V]{value: *v}
}

type keepFirstSingle[V any] struct {
	value V
}

func (m *keepFirstSingle[V]) Add(*V)    {}
func (m *keepFirstSingle[V]) Finish() V { return m.value }

// heapKey is the merge queue's priority: readers are ordered by larger
// common-prefix-length first, and within equal cpl, by smaller next
// byte first -- a reader agreeing with the last-emitted key for more
// bytes, or diverging later, sorts earlier.
type heapKey struct {
	cpl      int
	nextByte byte
}

// prefixHeap is a container/heap.Interface over the set of distinct
// heapKeys currently registered. Membership (which reader indices share
// a key) lives in mergeQueue.buckets, not here, so that many readers at
// the same priority cost one heap slot.
type prefixHeap []heapKey

func (h prefixHeap) Len() int { return len(h) }
func (h prefixHeap) Less(i, j int) bool {
	if h[i].cpl != h[j].cpl {
		return h[i].cpl > h[j].cpl
	}
	return h[i].nextByte < h[j].nextByte
}
func (h prefixHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *prefixHeap) Push(x any)        { *h = append(*h, x.(heapKey)) }
func (h *prefixHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeQueue is the priority structure over (cpl, next_byte) described
// in the merge design: a min/max heap of distinct keys plus a map from
// key to the reader indices currently sitting at that key, with a pool
// of spare index slices to avoid per-step allocation.
type mergeQueue struct {
	h       prefixHeap
	buckets map[heapKey][]int
	spares  [][]int
}

func newMergeQueue(capacity int) *mergeQueue {
	return &mergeQueue{
		h:       make(prefixHeap, 0, capacity),
		buckets: make(map[heapKey][]int, capacity),
	}
}

func (q *mergeQueue) takeSpare() []int {
	if n := len(q.spares); n > 0 {
		s := q.spares[n-1]
		q.spares = q.spares[:n-1]
		return s[:0]
	}
	return make([]int, 0, 4)
}

func (q *mergeQueue) register(cpl int, nextByte byte, idx int) {
	key := heapKey{cpl: cpl, nextByte: nextByte}
	ids, ok := q.buckets[key]
	if !ok {
		heap.Push(&q.h, key)
		ids = q.takeSpare()
	}
	q.buckets[key] = append(ids, idx)
}

// pop removes and returns the top-priority bucket. ok is false once the
// queue is empty.
func (q *mergeQueue) pop() (key heapKey, ids []int, ok bool) {
	if q.h.Len() == 0 {
		return heapKey{}, nil, false
	}
	key = heap.Pop(&q.h).(heapKey)
	ids = q.buckets[key]
	delete(q.buckets, key)
	return key, ids, true
}

func (q *mergeQueue) release(ids []int) {
	q.spares = append(q.spares, ids)
}

// pickLowestWithTies partitions ids in place into (tied, others), where
// tied is the subset of ids minimizing key(ids[n]) under byte-string
// comparison and others is everything else. It mirrors a swap-based
// single-pass partition: no sort, O(len(ids)) comparisons.
func pickLowestWithTies(ids []int, key func(id int) []byte) (tied, others []int) {
	if len(ids) <= 1 {
		return ids, nil
	}

	smallest := key(ids[0])
	numTies := 1
	for i := 1; i < len(ids); i++ {
		cur := key(ids[i])
		switch bytes.Compare(cur, smallest) {
		case -1:
			ids[i], ids[0] = ids[0], ids[i]
			smallest = cur
			numTies = 1
		case 0:
			ids[i], ids[numTies] = ids[numTies], ids[i]
			numTies++
		}
	}
	return ids[:numTies], ids[numTies:]
}

// Merge combines the sorted streams read from sources into a single
// sorted stream written to sink, folding values for duplicate keys
// through merger. Each source must already yield keys in strictly
// increasing order (the Writer-side invariant of whatever produced it);
// Merge does not itself validate that, only the existing order relation
// of the writer that built each source matters for correctness.
func Merge[V any](sources []Source, sink io.Writer, codec Codec[V], merger ValueMerger[V]) error {
	deltaWriter := NewDeltaWriter(sink, codec.NewWriter())

	readers := make([]*DeltaReader[V], 0, len(sources))
	var emptyKeyMerger SingleValueMerger[V]
	haveEmptyKey := false

	for _, src := range sources {
		dr := NewDeltaReader(src, codec.NewReader())
		ok, err := dr.Advance()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if len(dr.Suffix()) == 0 {
			if !haveEmptyKey {
				emptyKeyMerger = merger.NewValue(dr.Value())
				haveEmptyKey = true
			} else {
				emptyKeyMerger.Add(dr.Value())
			}

			ok, err := dr.Advance()
			if err != nil {
				return err
			}
			if ok {
				readers = append(readers, dr)
			}
			continue
		}

		readers = append(readers, dr)
	}

	if haveEmptyKey {
		merged := emptyKeyMerger.Finish()
		if err := deltaWriter.WriteDelta(0, nil, &merged); err != nil {
			return err
		}
	}

	queue := newMergeQueue(len(readers))
	for idx, r := range readers {
		queue.register(0, r.Suffix()[0], idx)
	}

	currentIDs := make([]int, 0, len(readers))
	for {
		key, ids, ok := queue.pop()
		if !ok {
			break
		}
		currentIDs = append(currentIDs[:0], ids...)
		queue.release(ids)

		tied, others := pickLowestWithTies(currentIDs, func(id int) []byte {
			return readers[id].SuffixFrom(key.cpl)
		})
		// Bucket order follows registration order, not stream order; fold
		// tied values lowest stream index first.
		sort.Ints(tied)

		first := readers[tied[0]]
		suffix := first.SuffixFrom(key.cpl)

		if len(tied) > 1 {
			singleMerger := merger.NewValue(first.Value())
			for _, id := range tied[1:] {
				singleMerger.Add(readers[id].Value())
			}
			merged := singleMerger.Finish()
			if err := deltaWriter.WriteDelta(key.cpl, suffix, &merged); err != nil {
				return err
			}
		} else {
			if err := deltaWriter.WriteDelta(key.cpl, suffix, first.Value()); err != nil {
				return err
			}
		}

		for _, id := range others {
			r := readers[id]
			readerSuffix := r.SuffixFrom(key.cpl)
			extra := commonPrefixLen(readerSuffix, suffix)
			queue.register(key.cpl+extra, readerSuffix[extra], id)
		}

		for _, id := range tied {
			r := readers[id]
			ok, err := r.Advance()
			if err != nil {
				return err
			}
			if ok {
				queue.register(r.CommonPrefixLen(), r.Suffix()[0], id)
			}
		}
	}

	return deltaWriter.Finalize()
}
