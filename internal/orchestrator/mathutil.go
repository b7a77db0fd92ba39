package orchestrator

// expSmooth folds a new observation into a rolling value. weight is the
// share given to the observation; 1-weight is retained from the old value.
func expSmooth(old, obs, weight float64) float64 {
	return old*(1-weight) + obs*weight
}

// incrementalMean recomputes a mean after its n-th observation, where n is
// the post-increment count of observations folded in so far.
func incrementalMean(old, obs float64, n int64) float64 {
	if n <= 1 {
		return obs
	}
	return (old*float64(n-1) + obs) / float64(n)
}
