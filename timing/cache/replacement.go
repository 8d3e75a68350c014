package cache

import (
	"math/rand"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// victimFinder extends akita's victim finder with an access hook so that
// strategies can keep per-line metadata.
type victimFinder interface {
	akitacache.VictimFinder
	touch(block *akitacache.Block)
	reset()
}

func newVictimFinder(config Config) victimFinder {
	switch config.Replacement {
	case LRUSecondChance:
		return newSecondChanceVictimFinder()
	case Random:
		return newRandomVictimFinder(config.Seed)
	default:
		return &lruVictimFinder{LRUVictimFinder: akitacache.NewLRUVictimFinder()}
	}
}

// lruVictimFinder evicts the least recently visited line. Recency is kept by
// the directory's LRU queue.
type lruVictimFinder struct {
	*akitacache.LRUVictimFinder
}

func (f *lruVictimFinder) touch(*akitacache.Block) {}

func (f *lruVictimFinder) reset() {}

// secondChanceVictimFinder is a clock over the ways of each set. The hand
// skips lines whose reference bit is set, clearing the bit as it passes, and
// evicts the first line found without one.
type secondChanceVictimFinder struct {
	referenced map[*akitacache.Block]bool
	hands      map[int]int
}

func newSecondChanceVictimFinder() *secondChanceVictimFinder {
	return &secondChanceVictimFinder{
		referenced: make(map[*akitacache.Block]bool),
		hands:      make(map[int]int),
	}
}

func (f *secondChanceVictimFinder) touch(block *akitacache.Block) {
	f.referenced[block] = true
}

func (f *secondChanceVictimFinder) reset() {
	clear(f.referenced)
	clear(f.hands)
}

func (f *secondChanceVictimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	if block := firstInvalid(set); block != nil {
		return block
	}

	setID := set.Blocks[0].SetID
	ways := len(set.Blocks)
	hand := f.hands[setID]

	// Two sweeps always find a line: the first clears every bit it passes.
	for i := 0; i < 2*ways; i++ {
		block := set.Blocks[hand]
		hand = (hand + 1) % ways

		if !f.referenced[block] {
			f.hands[setID] = hand
			return block
		}
		f.referenced[block] = false
	}

	f.hands[setID] = hand
	return set.Blocks[hand]
}

// randomVictimFinder evicts a uniformly chosen line.
type randomVictimFinder struct {
	seed int64
	rng  *rand.Rand
}

func newRandomVictimFinder(seed int64) *randomVictimFinder {
	return &randomVictimFinder{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (f *randomVictimFinder) touch(*akitacache.Block) {}

func (f *randomVictimFinder) reset() {
	f.rng = rand.New(rand.NewSource(f.seed))
}

func (f *randomVictimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	if block := firstInvalid(set); block != nil {
		return block
	}
	return set.Blocks[f.rng.Intn(len(set.Blocks))]
}

func firstInvalid(set *akitacache.Set) *akitacache.Block {
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block
		}
	}
	return nil
}
