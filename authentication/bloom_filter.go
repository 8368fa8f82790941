package authentication

import (
	"hash/fnv"
	"math"
	"sync"
)

// BloomFilter is a probabilistic set of registered emails. It lets signup skip
// the store lookup for addresses that were certainly never registered.
type BloomFilter struct {
	mu        sync.RWMutex
	words     []uint64
	numBits   uint64
	numHashes uint64
}

func NewBloomFilter(expectedItems uint, falsePositiveRate float64) *BloomFilter {
	if expectedItems == 0 {
		expectedItems = 1
	}

	m := optimalBitCount(uint64(expectedItems), falsePositiveRate)
	k := optimalHashCount(m, uint64(expectedItems))

	return &BloomFilter{
		words:     make([]uint64, (m+63)/64),
		numBits:   m,
		numHashes: k,
	}
}

func optimalBitCount(n uint64, p float64) uint64 {
	m := -float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)

	return max(uint64(math.Ceil(m)), 64)
}

func optimalHashCount(m, n uint64) uint64 {
	return max(uint64(math.Round(float64(m)/float64(n)*math.Ln2)), 1)
}

// positions uses double hashing over the two halves of a 64-bit FNV-1a sum.
func (bf *BloomFilter) positions(item string) []uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(item))
	sum := h.Sum64()

	h1 := sum & math.MaxUint32
	h2 := (sum >> 32) | 1

	positions := make([]uint64, bf.numHashes)
	for i := range bf.numHashes {
		positions[i] = (h1 + i*h2) % bf.numBits
	}

	return positions
}

func (bf *BloomFilter) Add(item string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	for _, pos := range bf.positions(item) {
		bf.words[pos/64] |= 1 << (pos % 64)
	}
}

// Test returns false when item is certainly absent. True means it may be
// present.
func (bf *BloomFilter) Test(item string) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	for _, pos := range bf.positions(item) {
		if bf.words[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}

	return true
}
