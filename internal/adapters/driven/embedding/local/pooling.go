package local

import "math"

// MeanPool averages the token vectors of hidden ([seqLen][dim] flattened)
// over positions where mask is non-zero. A fully masked input yields zeros.
func MeanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	if dim == 0 {
		return out
	}
	var count float32
	for t, m := range mask {
		if m == 0 || (t+1)*dim > len(hidden) {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}

// L2Normalize scales v to unit length in place and returns it.
// Zero vectors are left unchanged.
func L2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
