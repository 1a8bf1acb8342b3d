package dataproc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/agentflow/agentflow/pkg/instruction"
)

// Options configures the processing pipeline.
type Options struct {
	// NComponents is the number of principal components kept.
	NComponents int

	// NClusters is the number of k-means clusters.
	NClusters int

	// MaxIterations bounds the k-means refinement loop.
	MaxIterations int
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		NComponents:   2,
		NClusters:     3,
		MaxIterations: 100,
	}
}

// New creates a data-processing instruction: standardize, project onto
// principal components, cluster with k-means. The execution context must
// hold a numeric matrix under "data"; the result carries processed_data,
// clusters, and pipeline metrics.
func New(name, description string, opts Options) *instruction.Advanced {
	if opts.NComponents <= 0 {
		opts.NComponents = 2
	}
	if opts.NClusters <= 0 {
		opts.NClusters = 3
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}

	inst := instruction.NewAdvanced(name, description)
	inst.AddValidationRule(func(_ context.Context, ec *instruction.Context) (bool, error) {
		raw, ok := ec.Get("data")
		if !ok {
			return false, fmt.Errorf("no data provided")
		}
		if _, err := toMatrix(raw); err != nil {
			return false, err
		}
		return true, nil
	})
	inst.SetBody(func(_ context.Context, ec *instruction.Context) (map[string]any, error) {
		raw, _ := ec.Get("data")
		data, err := toMatrix(raw)
		if err != nil {
			return nil, err
		}
		return process(data, opts)
	})

	return inst
}

// process runs the full pipeline on a parsed matrix.
func process(data *mat.Dense, opts Options) (map[string]any, error) {
	rows, cols := data.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("data matrix is empty")
	}

	standardized := standardize(data)

	reduced, explained, nComponents, err := reduceDimensions(standardized, opts.NComponents)
	if err != nil {
		return nil, err
	}

	clusters := kmeans(reduced, opts.NClusters, opts.MaxIterations)

	return map[string]any{
		"processed_data": matrixToSlices(reduced),
		"clusters":       clusters,
		"metrics": map[string]any{
			"n_samples":          rows,
			"n_features":         cols,
			"n_components":       nComponents,
			"explained_variance": explained,
		},
	}, nil
}

// toMatrix converts supported context payloads into a dense matrix.
// JSON-decoded inputs arrive as []any of []any.
func toMatrix(raw any) (*mat.Dense, error) {
	switch v := raw.(type) {
	case *mat.Dense:
		return v, nil
	case [][]float64:
		return slicesToMatrix(v)
	case []any:
		rows := make([][]float64, 0, len(v))
		for i, rowAny := range v {
			rowSlice, ok := rowAny.([]any)
			if !ok {
				return nil, fmt.Errorf("invalid data type: row %d is not a numeric array", i)
			}
			row := make([]float64, len(rowSlice))
			for j, cell := range rowSlice {
				f, ok := toFloat(cell)
				if !ok {
					return nil, fmt.Errorf("invalid data type: value at [%d][%d] is not numeric", i, j)
				}
				row[j] = f
			}
			rows = append(rows, row)
		}
		return slicesToMatrix(rows)
	default:
		return nil, fmt.Errorf("invalid data type: %T", raw)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func slicesToMatrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("data matrix is empty")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("data matrix is empty")
	}
	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged data: row %d has %d values, want %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	return mat.NewDense(len(rows), cols, flat), nil
}

func matrixToSlices(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		copy(out[i], m.RawRowView(i))
	}
	return out
}

// standardize centers each column and scales it to unit variance.
// Constant columns become zeros.
func standardize(data *mat.Dense) *mat.Dense {
	rows, cols := data.Dims()
	out := mat.NewDense(rows, cols, nil)

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		mean, std := stat.MeanStdDev(col, nil)
		for i := 0; i < rows; i++ {
			if std == 0 || math.IsNaN(std) {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, (col[i]-mean)/std)
		}
	}
	return out
}

// reduceDimensions projects onto the leading principal components and
// reports the fraction of variance they explain.
func reduceDimensions(data *mat.Dense, nComponents int) (*mat.Dense, float64, int, error) {
	rows, cols := data.Dims()

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, 0, 0, fmt.Errorf("principal component analysis failed")
	}

	vars := pc.VarsTo(nil)
	if nComponents > len(vars) {
		nComponents = len(vars)
	}
	if nComponents > cols {
		nComponents = cols
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	proj := vecs.Slice(0, cols, 0, nComponents)

	reduced := mat.NewDense(rows, nComponents, nil)
	reduced.Mul(data, proj)

	var total, kept float64
	for i, v := range vars {
		total += v
		if i < nComponents {
			kept += v
		}
	}
	explained := 0.0
	if total > 0 {
		explained = kept / total
	}

	return reduced, explained, nComponents, nil
}

// kmeans assigns rows to clusters with Lloyd's algorithm. Centroids are
// seeded from evenly spaced rows so runs are deterministic.
func kmeans(data *mat.Dense, k, maxIterations int) []int {
	rows, cols := data.Dims()
	if k > rows {
		k = rows
	}

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = make([]float64, cols)
		copy(centroids[c], data.RawRowView(c*rows/k))
	}

	assignments := make([]int, rows)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i := 0; i < rows; i++ {
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				d := squaredDistance(data.RawRowView(i), centroids[c])
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, cols)
		}
		for i := 0; i < rows; i++ {
			c := assignments[i]
			counts[c]++
			row := data.RawRowView(i)
			for j := 0; j < cols; j++ {
				sums[c][j] += row[j]
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	return assignments
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
