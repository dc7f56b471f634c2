package vector

// InnerProduct is the dot product of a and b in float64. Vectors of unequal
// length, or empty ones, score 0. For unit vectors it is the cosine.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i, x := range a {
		dot += float64(x) * float64(b[i])
	}
	return dot
}

// RemapCosine maps a cosine similarity from [-1, 1] onto [0, 1].
func RemapCosine(score float64) float64 {
	return (score + 1) / 2
}
