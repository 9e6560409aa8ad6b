package worker

// Partition splits items into at most limit consecutive chunks of
// ceil(len(items)/limit) elements; the last chunk may be shorter. Fewer items
// than limit yields one chunk per item. Chunks share items' backing array.
func Partition[T any](items []T, limit int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultMaxWorkers
	}

	size := (len(items) + limit - 1) / limit
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
