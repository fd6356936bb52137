package navigator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
)

func newPropertyNavigator(k int) (*memStore, *testCodec, *InMemoryNavigator[testEntry]) {
	store := &memStore{}
	codec := &testCodec{}
	nav, err := New[testEntry](store, codec, WithMaxEntrySeek(k), WithLogger(logging.NewNopLogger()))
	if err != nil {
		panic(err)
	}
	return store, codec, nav
}

// TestNavigatorProperties checks lookups against a parallel map of the
// offsets every record was actually appended at.
func TestNavigatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	if testing.Short() {
		parameters.MinSuccessfulTests = 10
	}

	properties := gopter.NewProperties(parameters)

	properties.Property("AddressOf returns the append offset of every record", prop.ForAll(
		func(payloadLens []int, k int) bool {
			store, codec, nav := newPropertyNavigator(k)
			reference := make(map[uint64]int64, len(payloadLens))
			for i, n := range payloadLens {
				seq := uint64(i + 1)
				reference[seq] = store.append(codec, testEntry{seq: seq, payload: make([]byte, n)})
				nav.NotifyAppend(seq, reference[seq])
			}

			for seq, want := range reference {
				got, err := nav.AddressOf(seq)
				if err != nil || got != want {
					return false
				}
			}
			_, err := nav.AddressOf(uint64(len(payloadLens) + 1))
			return IsNotFound(err) && store.open() == 0
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.IntRange(1, 12),
	))

	properties.Property("eager index follows the gap rule", prop.ForAll(
		func(count int, k int) bool {
			store, codec, nav := newPropertyNavigator(k)
			var expected []uint64
			var lastIndexed uint64
			expected = append(expected, 0)
			for seq := uint64(1); seq <= uint64(count); seq++ {
				nav.NotifyAppend(seq, store.append(codec, testEntry{seq: seq}))
				if seq-lastIndexed >= uint64(k) {
					expected = append(expected, seq)
					lastIndexed = seq
				}
			}

			got := nav.IndexedSeqNums()
			if len(got) != len(expected) {
				return false
			}
			for i := range got {
				if got[i] != expected[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 300),
		gen.IntRange(1, 20),
	))

	properties.Property("truncation never leaves stale pairs", prop.ForAll(
		func(count int, cut int, k int) bool {
			if cut > count {
				cut = count
			}
			store, codec, nav := newPropertyNavigator(k)
			offsets := make(map[uint64]int64)
			for seq := uint64(1); seq <= uint64(count); seq++ {
				offsets[seq] = store.append(codec, testEntry{seq: seq, payload: []byte{1, 2}})
				nav.NotifyAppend(seq, offsets[seq])
			}
			for seq := uint64(1); seq <= uint64(count); seq += 3 {
				if _, err := nav.AddressOf(seq); err != nil {
					return false
				}
			}

			truncateAt := uint64(cut)
			if err := nav.NotifyTruncation(truncateAt); err != nil {
				return false
			}
			// A lookup before the store is cut still sees the old records.
			if _, err := nav.AddressOf(uint64(count)); err != nil {
				return false
			}
			store.truncate(offsets[truncateAt])
			if err := nav.CompleteTruncation(truncateAt); err != nil {
				return false
			}

			for _, seq := range nav.IndexedSeqNums() {
				if seq >= truncateAt {
					return false
				}
			}
			for seq := truncateAt; seq <= uint64(count); seq++ {
				if _, err := nav.AddressOf(seq); !IsNotFound(err) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 80),
		gen.IntRange(1, 80),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
