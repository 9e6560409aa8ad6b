package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPartitionProperties(t *testing.T) {
	for k := 0; k <= 100; k++ {
		for _, m := range []int{1, 2, 3, 7, 30, 64, 101} {
			items := seq(k)
			chunks := Partition(items, m)

			if k == 0 {
				assert.Nil(t, chunks)
				continue
			}

			require.NotEmpty(t, chunks, "k=%d m=%d", k, m)
			assert.LessOrEqual(t, len(chunks), min(k, m), "k=%d m=%d", k, m)

			var joined []int
			for _, c := range chunks {
				assert.NotEmpty(t, c)
				joined = append(joined, c...)
			}
			assert.Equal(t, items, joined, "k=%d m=%d", k, m)

			size := (k + m - 1) / m
			for i, c := range chunks[:len(chunks)-1] {
				assert.Len(t, c, size, "k=%d m=%d chunk=%d", k, m, i)
			}
			assert.LessOrEqual(t, len(chunks[len(chunks)-1]), size)
		}
	}
}

func TestPartitionFewerItemsThanWorkers(t *testing.T) {
	chunks := Partition([]string{"a", "b", "c"}, 30)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, chunks)
}

func TestPartitionSixtyFiveOverThirty(t *testing.T) {
	chunks := Partition(seq(65), 30)

	// ceil(65/30) = 3: 21 chunks of 3 then one of 2.
	require.Len(t, chunks, 22)
	for i := 0; i < 21; i++ {
		assert.Equal(t, []int{3 * i, 3*i + 1, 3*i + 2}, chunks[i], "chunk %d", i)
	}
	assert.Equal(t, []int{63, 64}, chunks[21])
}

func TestPartitionDefaultLimit(t *testing.T) {
	chunks := Partition(seq(90), 0)
	assert.Len(t, chunks, DefaultMaxWorkers)
}

func TestPartitionChunksDoNotAlias(t *testing.T) {
	chunks := Partition(seq(4), 2)
	chunks[0] = append(chunks[0], 99)
	assert.Equal(t, []int{2, 3}, chunks[1])
}
