package transform

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Strategy transforms a numeric matrix and reports metrics about what
// it did. Strategies are stateless and safe for concurrent use.
type Strategy interface {
	Name() string
	Apply(data *mat.Dense) (*mat.Dense, map[string]any, error)
}

// Outlier removal methods.
const (
	MethodZScore         = "z_score"
	MethodIQR            = "iqr"
	MethodModifiedZScore = "modified_z_score"
)

// OutlierRemoval drops rows containing values that the configured
// method flags as outliers in their column.
type OutlierRemoval struct {
	method    string
	threshold float64
}

// NewOutlierRemoval creates an outlier removal strategy. Supported
// methods are z_score, iqr, and modified_z_score. A zero threshold
// uses the method's conventional default.
func NewOutlierRemoval(method string, threshold float64) (*OutlierRemoval, error) {
	switch method {
	case MethodZScore:
		if threshold <= 0 {
			threshold = 3.0
		}
	case MethodIQR:
		if threshold <= 0 {
			threshold = 1.5
		}
	case MethodModifiedZScore:
		if threshold <= 0 {
			threshold = 3.5
		}
	default:
		return nil, fmt.Errorf("unknown outlier method: %s", method)
	}
	return &OutlierRemoval{method: method, threshold: threshold}, nil
}

func (o *OutlierRemoval) Name() string { return "outlier_removal" }

func (o *OutlierRemoval) Apply(data *mat.Dense) (*mat.Dense, map[string]any, error) {
	rows, cols := data.Dims()
	keep := make([]bool, rows)
	for i := range keep {
		keep[i] = true
	}

	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		flags := o.flagColumn(col)
		for i, out := range flags {
			if out {
				keep[i] = false
			}
		}
	}

	kept := make([]int, 0, rows)
	for i, k := range keep {
		if k {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nil, nil, fmt.Errorf("outlier removal discarded every row")
	}

	out := mat.NewDense(len(kept), cols, nil)
	for dst, src := range kept {
		out.SetRow(dst, data.RawRowView(src))
	}

	return out, map[string]any{
		"rows_in":      rows,
		"rows_out":     len(kept),
		"rows_removed": rows - len(kept),
	}, nil
}

// flagColumn marks indices of col considered outliers by the method.
func (o *OutlierRemoval) flagColumn(col []float64) []bool {
	flags := make([]bool, len(col))
	switch o.method {
	case MethodZScore:
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			return flags
		}
		for i, v := range col {
			flags[i] = math.Abs((v-mean)/std) > o.threshold
		}
	case MethodIQR:
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		iqr := q3 - q1
		lo, hi := q1-o.threshold*iqr, q3+o.threshold*iqr
		for i, v := range col {
			flags[i] = v < lo || v > hi
		}
	case MethodModifiedZScore:
		med := median(col)
		dev := make([]float64, len(col))
		for i, v := range col {
			dev[i] = math.Abs(v - med)
		}
		mad := median(dev)
		if mad == 0 {
			return flags
		}
		for i, v := range col {
			// 0.6745 scales MAD to the standard deviation of a normal.
			flags[i] = math.Abs(0.6745*(v-med)/mad) > o.threshold
		}
	}
	return flags
}

// Feature engineering methods.
const (
	MethodPolynomial = "polynomial"
	MethodLog        = "log"
	MethodExp        = "exp"
	MethodBinning    = "binning"
)

// FeatureEngineering appends derived columns to the matrix. Every
// method keeps the original columns and grows the feature count.
type FeatureEngineering struct {
	method string
	degree int
	bins   int
}

// NewFeatureEngineering creates a feature engineering strategy.
// Supported methods are polynomial (degree), log, exp, and binning
// (bins).
func NewFeatureEngineering(method string, degree, bins int) (*FeatureEngineering, error) {
	switch method {
	case MethodPolynomial:
		if degree < 2 {
			degree = 2
		}
	case MethodLog, MethodExp:
	case MethodBinning:
		if bins < 2 {
			bins = 5
		}
	default:
		return nil, fmt.Errorf("unknown feature strategy: %s", method)
	}
	return &FeatureEngineering{method: method, degree: degree, bins: bins}, nil
}

func (f *FeatureEngineering) Name() string { return "feature_engineering" }

func (f *FeatureEngineering) Apply(data *mat.Dense) (*mat.Dense, map[string]any, error) {
	rows, cols := data.Dims()

	var derived [][]float64
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		derived = append(derived, f.deriveColumns(col)...)
	}

	out := mat.NewDense(rows, cols+len(derived), nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, data.At(i, j))
		}
		for k, d := range derived {
			out.Set(i, cols+k, d[i])
		}
	}

	return out, map[string]any{
		"features_in":    cols,
		"features_out":   cols + len(derived),
		"features_added": len(derived),
	}, nil
}

// deriveColumns produces the new feature columns for one input column.
func (f *FeatureEngineering) deriveColumns(col []float64) [][]float64 {
	switch f.method {
	case MethodPolynomial:
		out := make([][]float64, 0, f.degree-1)
		for d := 2; d <= f.degree; d++ {
			p := make([]float64, len(col))
			for i, v := range col {
				p[i] = math.Pow(v, float64(d))
			}
			out = append(out, p)
		}
		return out
	case MethodLog:
		// Signed log1p keeps negative inputs meaningful.
		p := make([]float64, len(col))
		for i, v := range col {
			p[i] = math.Copysign(math.Log1p(math.Abs(v)), v)
		}
		return [][]float64{p}
	case MethodExp:
		p := make([]float64, len(col))
		for i, v := range col {
			p[i] = math.Expm1(math.Min(v, 50))
		}
		return [][]float64{p}
	case MethodBinning:
		lo, hi := col[0], col[0]
		for _, v := range col {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		width := (hi - lo) / float64(f.bins)
		p := make([]float64, len(col))
		for i, v := range col {
			if width == 0 {
				continue
			}
			bin := int((v - lo) / width)
			if bin >= f.bins {
				bin = f.bins - 1
			}
			p[i] = float64(bin)
		}
		return [][]float64{p}
	}
	return nil
}

// AnomalyDetection appends a 0/1 anomaly column flagging rows whose
// values deviate from their column distribution beyond the threshold.
type AnomalyDetection struct {
	threshold float64
}

// NewAnomalyDetection creates a statistical anomaly detector. A zero
// threshold defaults to 3 standard deviations.
func NewAnomalyDetection(threshold float64) *AnomalyDetection {
	if threshold <= 0 {
		threshold = 3.0
	}
	return &AnomalyDetection{threshold: threshold}
}

func (a *AnomalyDetection) Name() string { return "anomaly_detection" }

func (a *AnomalyDetection) Apply(data *mat.Dense) (*mat.Dense, map[string]any, error) {
	rows, cols := data.Dims()

	anomalous := make([]bool, rows)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for i, v := range col {
			if math.Abs((v-mean)/std) > a.threshold {
				anomalous[i] = true
			}
		}
	}

	out := mat.NewDense(rows, cols+1, nil)
	flagged := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, data.At(i, j))
		}
		if anomalous[i] {
			out.Set(i, cols, 1)
			flagged++
		}
	}

	return out, map[string]any{
		"anomalies_flagged": flagged,
		"rows":              rows,
	}, nil
}

// Time-series methods.
const (
	MethodRolling    = "rolling_features"
	MethodLag        = "lag_features"
	MethodDifference = "difference"
)

// TimeSeries appends windowed features computed down each column, with
// rows treated as consecutive observations. Leading rows without
// enough history repeat the earliest defined value.
type TimeSeries struct {
	method string
	window int
	lags   []int
	order  int
}

// NewTimeSeries creates a time-series feature strategy. Supported
// methods are rolling_features (window), lag_features (lags), and
// difference (order).
func NewTimeSeries(method string, window int, lags []int, order int) (*TimeSeries, error) {
	switch method {
	case MethodRolling:
		if window < 2 {
			window = 2
		}
	case MethodLag:
		if len(lags) == 0 {
			lags = []int{1}
		}
		for _, l := range lags {
			if l < 1 {
				return nil, fmt.Errorf("lag must be positive, got %d", l)
			}
		}
	case MethodDifference:
		if order < 1 {
			order = 1
		}
	default:
		return nil, fmt.Errorf("unknown time-series strategy: %s", method)
	}
	return &TimeSeries{method: method, window: window, lags: lags, order: order}, nil
}

func (ts *TimeSeries) Name() string { return "time_series" }

func (ts *TimeSeries) Apply(data *mat.Dense) (*mat.Dense, map[string]any, error) {
	rows, cols := data.Dims()

	var derived [][]float64
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		derived = append(derived, ts.deriveColumns(col)...)
	}

	out := mat.NewDense(rows, cols+len(derived), nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, data.At(i, j))
		}
		for k, d := range derived {
			out.Set(i, cols+k, d[i])
		}
	}

	return out, map[string]any{
		"features_in":    cols,
		"features_out":   cols + len(derived),
		"features_added": len(derived),
	}, nil
}

func (ts *TimeSeries) deriveColumns(col []float64) [][]float64 {
	switch ts.method {
	case MethodRolling:
		means := make([]float64, len(col))
		stds := make([]float64, len(col))
		for i := range col {
			start := i - ts.window + 1
			if start < 0 {
				start = 0
			}
			mean, std := stat.MeanStdDev(col[start:i+1], nil)
			means[i] = mean
			if !math.IsNaN(std) {
				stds[i] = std
			}
		}
		return [][]float64{means, stds}
	case MethodLag:
		out := make([][]float64, 0, len(ts.lags))
		for _, lag := range ts.lags {
			p := make([]float64, len(col))
			for i := range col {
				src := i - lag
				if src < 0 {
					src = 0
				}
				p[i] = col[src]
			}
			out = append(out, p)
		}
		return out
	case MethodDifference:
		cur := append([]float64(nil), col...)
		for o := 0; o < ts.order; o++ {
			next := make([]float64, len(cur))
			for i := 1; i < len(cur); i++ {
				next[i] = cur[i] - cur[i-1]
			}
			cur = next
		}
		return [][]float64{cur}
	}
	return nil
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
