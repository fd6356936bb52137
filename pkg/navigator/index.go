package navigator

import (
	"sync"

	"github.com/google/btree"
)

const indexDegree = 16

type indexItem struct {
	seqNum  uint64
	address int64
}

func lessItem(a, b indexItem) bool {
	return a.seqNum < b.seqNum
}

// seqIndex is the ordered seqNum -> address map shared by the writer's
// notifications and readers' opportunistic caching. The sentinel at seqNum 0
// is never removed, so floor and last always succeed.
//
// epoch advances on every truncation. A scan remembers the epoch it started
// from and only caches its result if no truncation happened since.
type seqIndex struct {
	mu    sync.Mutex
	tree  *btree.BTreeG[indexItem]
	epoch uint64
}

func newSeqIndex(sentinelAddress int64) *seqIndex {
	tree := btree.NewG[indexItem](indexDegree, lessItem)
	tree.ReplaceOrInsert(indexItem{seqNum: 0, address: sentinelAddress})
	return &seqIndex{tree: tree}
}

func (x *seqIndex) get(seqNum uint64) (int64, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	item, ok := x.tree.Get(indexItem{seqNum: seqNum})
	return item.address, ok
}

// floor returns the greatest pair with key <= seqNum and the current epoch.
func (x *seqIndex) floor(seqNum uint64) (indexItem, uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var found indexItem
	x.tree.DescendLessOrEqual(indexItem{seqNum: seqNum}, func(item indexItem) bool {
		found = item
		return false
	})
	return found, x.epoch
}

// last returns the greatest pair and the current epoch.
func (x *seqIndex) last() (indexItem, uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	item, _ := x.tree.Max()
	return item, x.epoch
}

func (x *seqIndex) put(seqNum uint64, address int64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.tree.ReplaceOrInsert(indexItem{seqNum: seqNum, address: address})
}

// putIfEpoch inserts the pair only if no truncation happened since epoch.
func (x *seqIndex) putIfEpoch(seqNum uint64, address int64, epoch uint64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.epoch != epoch {
		return false
	}
	x.tree.ReplaceOrInsert(indexItem{seqNum: seqNum, address: address})
	return true
}

// putIfGap inserts the pair if seqNum is at least gap past the greatest key.
func (x *seqIndex) putIfGap(seqNum uint64, address int64, gap uint64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	last, _ := x.tree.Max()
	if seqNum < last.seqNum || seqNum-last.seqNum < gap {
		return false
	}
	x.tree.ReplaceOrInsert(indexItem{seqNum: seqNum, address: address})
	return true
}

// truncateFrom removes every pair with key >= seqNum. seqNum must be positive.
func (x *seqIndex) truncateFrom(seqNum uint64) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	var doomed []indexItem
	x.tree.AscendGreaterOrEqual(indexItem{seqNum: seqNum}, func(item indexItem) bool {
		doomed = append(doomed, item)
		return true
	})
	for _, item := range doomed {
		x.tree.Delete(item)
	}
	x.epoch++
	return len(doomed)
}

func (x *seqIndex) len() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.tree.Len()
}

func (x *seqIndex) seqNums() []uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()

	keys := make([]uint64, 0, x.tree.Len())
	x.tree.Ascend(func(item indexItem) bool {
		keys = append(keys, item.seqNum)
		return true
	})
	return keys
}
