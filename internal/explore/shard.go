package explore

// ShardSizes partitions a population of n individuals into p contiguous,
// order-preserving shards: every shard gets n/p elements and the first
// n mod p shards get exactly one extra. p > n leaves trailing shards empty,
// which is normal, not an error.
func ShardSizes(n, p int) []int {
	sizes := make([]int, p)
	base := n / p
	remainder := n % p
	for i := range sizes {
		sizes[i] = base
		if i < remainder {
			sizes[i]++
		}
	}
	return sizes
}

// ShardOffsets returns the exclusive prefix sum of sizes: the position of
// each shard's first element in the global population order.
func ShardOffsets(sizes []int) []int {
	offsets := make([]int, len(sizes))
	acc := 0
	for i, size := range sizes {
		offsets[i] = acc
		acc += size
	}
	return offsets
}
