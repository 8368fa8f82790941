package authentication_test

import (
	"fmt"
	"testing"

	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/stretchr/testify/assert"
)

func TestBloomFilter(t *testing.T) {
	t.Parallel()

	bf := authentication.NewBloomFilter(1000, 0.01)

	for i := range 1000 {
		bf.Add(fmt.Sprintf("user%d@example.com", i))
	}

	for i := range 1000 {
		assert.True(t, bf.Test(fmt.Sprintf("user%d@example.com", i)))
	}

	falsePositives := 0

	for i := range 1000 {
		if bf.Test(fmt.Sprintf("other%d@example.com", i)) {
			falsePositives++
		}
	}

	assert.Less(t, falsePositives, 50)
}

func TestBloomFilterZeroCapacity(t *testing.T) {
	t.Parallel()

	bf := authentication.NewBloomFilter(0, 0.01)

	assert.False(t, bf.Test("a@x.com"))

	bf.Add("a@x.com")

	assert.True(t, bf.Test("a@x.com"))
}
