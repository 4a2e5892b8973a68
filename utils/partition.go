package utils

// PartitionMap buckets a range of item indices (elements, particles) into
// NP near-equal contiguous spans for fan-out across goroutines.
type PartitionMap struct {
	ParallelDegree int
	MaxIndex       int
}

func NewPartitionMap(ParallelDegree, maxIndex int) *PartitionMap {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	if ParallelDegree > maxIndex && maxIndex > 0 {
		ParallelDegree = maxIndex
	}
	return &PartitionMap{
		ParallelDegree: ParallelDegree,
		MaxIndex:       maxIndex,
	}
}

func (pm *PartitionMap) GetBucketRange(np int) (imin, imax int) {
	var (
		base = pm.MaxIndex / pm.ParallelDegree
		rem  = pm.MaxIndex % pm.ParallelDegree
	)
	imin = np*base + min(np, rem)
	imax = imin + base
	if np < rem {
		imax++
	}
	return
}

func (pm *PartitionMap) GetBucketDimension(np int) int {
	imin, imax := pm.GetBucketRange(np)
	return imax - imin
}
