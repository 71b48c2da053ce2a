package embedding

import (
	"fmt"
	"math"
)

// ToFloat32 converts a raw provider array into one float32 vector. A token matrix
// (one row per token) is mean-pooled across rows.
func ToFloat32(values any) ([]float32, error) {
	switch v := values.(type) {
	case []float32:
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	case []float64:
		return convertSlice(v), nil
	case []int:
		return convertSlice(v), nil
	case []int8:
		return convertSlice(v), nil
	case []int32:
		return convertSlice(v), nil
	case []int64:
		return convertSlice(v), nil
	case [][]float32:
		return meanPool(v)
	case [][]float64:
		rows := make([][]float32, len(v))
		for i, row := range v {
			rows[i] = convertSlice(row)
		}
		return meanPool(rows)
	case []any:
		return convertAny(v)
	case nil:
		return nil, fmt.Errorf("no embedding values")
	default:
		return nil, fmt.Errorf("unsupported embedding type %T", values)
	}
}

type number interface {
	~float32 | ~float64 | ~int | ~int8 | ~int32 | ~int64
}

func convertSlice[T number](in []T) []float32 {
	out := make([]float32, len(in))
	for i, x := range in {
		out[i] = float32(x)
	}
	return out
}

// convertAny handles decoded JSON: either []float64 as []any, or nested rows.
func convertAny(in []any) ([]float32, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	if _, nested := in[0].([]any); nested {
		rows := make([][]float32, 0, len(in))
		for _, r := range in {
			row, ok := r.([]any)
			if !ok {
				return nil, fmt.Errorf("ragged embedding matrix")
			}
			// Some models add a batch axis: [[[...tokens...]]]
			vec, err := convertAny(row)
			if err != nil {
				return nil, err
			}
			rows = append(rows, vec)
		}
		if len(rows) == 1 {
			return rows[0], nil
		}
		return meanPool(rows)
	}

	out := make([]float32, len(in))
	for i, x := range in {
		f, ok := x.(float64)
		if !ok {
			return nil, fmt.Errorf("non-numeric embedding component %T at %d", x, i)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func meanPool(rows [][]float32) ([]float32, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty token matrix")
	}
	width := len(rows[0])
	sum := make([]float64, width)
	for _, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("ragged token matrix: %d vs %d", len(row), width)
		}
		for i, x := range row {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, width)
	n := float64(len(rows))
	for i := range sum {
		out[i] = float32(sum[i] / n)
	}
	return out, nil
}

// normalizeVector scales vec to unit length; cosine distance in pgvector assumes it.
// A zero or non-finite vector has no direction and is rejected.
func normalizeVector(vec []float32) ([]float32, error) {
	var magnitude float64
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("non-finite embedding component at %d", i)
		}
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 || math.IsInf(magnitude, 0) {
		return nil, fmt.Errorf("embedding has no usable magnitude")
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized, nil
}

// CosineSimilarity assumes both vectors have the same length.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
