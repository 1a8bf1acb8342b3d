package transform

import (
	"context"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/agentflow/agentflow/pkg/instruction"
)

// Two correlated columns with one extreme row.
func spikedData() *mat.Dense {
	return mat.NewDense(7, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		100, 400,
		4, 50,
		5, 60,
		6, 70,
	})
}

func TestOutlierRemovalMethods(t *testing.T) {
	tests := []struct {
		method    string
		threshold float64
	}{
		{MethodZScore, 2.0},
		{MethodIQR, 1.5},
		{MethodModifiedZScore, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			s, err := NewOutlierRemoval(tt.method, tt.threshold)
			if err != nil {
				t.Fatalf("NewOutlierRemoval: %v", err)
			}

			out, metrics, err := s.Apply(spikedData())
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			rows, cols := out.Dims()
			if rows >= 7 {
				t.Errorf("rows = %d, want fewer than input", rows)
			}
			if cols != 2 {
				t.Errorf("cols = %d, want 2", cols)
			}
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					if math.Abs(out.At(i, j)) > 100 {
						t.Errorf("extreme value %v survived at [%d][%d]", out.At(i, j), i, j)
					}
				}
			}
			if removed, ok := metrics["rows_removed"].(int); !ok || removed < 1 {
				t.Errorf("rows_removed = %v, want at least 1", metrics["rows_removed"])
			}
		})
	}
}

func TestOutlierRemovalUnknownMethod(t *testing.T) {
	if _, err := NewOutlierRemoval("invalid_method", 2.0); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestOutlierRemovalAllRowsDiscarded(t *testing.T) {
	s, err := NewOutlierRemoval(MethodZScore, 0.0001)
	if err != nil {
		t.Fatalf("NewOutlierRemoval: %v", err)
	}

	// Both values deviate from the column mean, so both rows go.
	if _, _, err := s.Apply(mat.NewDense(2, 1, []float64{1, 2})); err == nil {
		t.Fatal("expected error when every row is discarded")
	}
}

func TestFeatureEngineeringMethods(t *testing.T) {
	tests := []struct {
		method string
		degree int
		bins   int
	}{
		{method: MethodPolynomial, degree: 2},
		{method: MethodLog},
		{method: MethodExp},
		{method: MethodBinning, bins: 5},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			s, err := NewFeatureEngineering(tt.method, tt.degree, tt.bins)
			if err != nil {
				t.Fatalf("NewFeatureEngineering: %v", err)
			}

			out, metrics, err := s.Apply(spikedData())
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			rows, cols := out.Dims()
			if rows != 7 {
				t.Errorf("rows = %d, want 7", rows)
			}
			if cols <= 2 {
				t.Errorf("cols = %d, want more than input", cols)
			}
			if added, ok := metrics["features_added"].(int); !ok || added < 1 {
				t.Errorf("features_added = %v, want at least 1", metrics["features_added"])
			}
		})
	}
}

func TestFeatureEngineeringPolynomialValues(t *testing.T) {
	s, err := NewFeatureEngineering(MethodPolynomial, 3, 0)
	if err != nil {
		t.Fatalf("NewFeatureEngineering: %v", err)
	}

	data := mat.NewDense(2, 1, []float64{2, 3})
	out, _, err := s.Apply(data)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	_, cols := out.Dims()
	if cols != 3 {
		t.Fatalf("cols = %d, want original plus squares and cubes", cols)
	}
	if out.At(0, 1) != 4 || out.At(0, 2) != 8 {
		t.Errorf("row 0 powers = %v, %v, want 4, 8", out.At(0, 1), out.At(0, 2))
	}
	if out.At(1, 1) != 9 || out.At(1, 2) != 27 {
		t.Errorf("row 1 powers = %v, %v, want 9, 27", out.At(1, 1), out.At(1, 2))
	}
}

func TestFeatureEngineeringUnknownMethod(t *testing.T) {
	if _, err := NewFeatureEngineering("invalid_strategy", 0, 0); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestAnomalyDetection(t *testing.T) {
	s := NewAnomalyDetection(2.0)

	out, metrics, err := s.Apply(spikedData())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	rows, cols := out.Dims()
	if rows != 7 || cols != 3 {
		t.Fatalf("dims = %dx%d, want 7x3 with appended anomaly column", rows, cols)
	}
	if out.At(3, 2) != 1 {
		t.Error("extreme row not flagged as anomalous")
	}
	if out.At(0, 2) != 0 {
		t.Error("normal row flagged as anomalous")
	}
	if flagged, ok := metrics["anomalies_flagged"].(int); !ok || flagged != 1 {
		t.Errorf("anomalies_flagged = %v, want 1", metrics["anomalies_flagged"])
	}
}

func TestTimeSeriesMethods(t *testing.T) {
	tests := []struct {
		method string
		window int
		lags   []int
		order  int
	}{
		{method: MethodRolling, window: 3},
		{method: MethodLag, lags: []int{1, 2}},
		{method: MethodDifference, order: 1},
	}

	series := mat.NewDense(6, 1, []float64{1, 3, 6, 10, 15, 21})

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			s, err := NewTimeSeries(tt.method, tt.window, tt.lags, tt.order)
			if err != nil {
				t.Fatalf("NewTimeSeries: %v", err)
			}

			out, _, err := s.Apply(series)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			rows, cols := out.Dims()
			if rows != 6 {
				t.Errorf("rows = %d, want 6", rows)
			}
			if cols <= 1 {
				t.Errorf("cols = %d, want more than input", cols)
			}
		})
	}
}

func TestTimeSeriesLagValues(t *testing.T) {
	s, err := NewTimeSeries(MethodLag, 0, []int{2}, 0)
	if err != nil {
		t.Fatalf("NewTimeSeries: %v", err)
	}

	out, _, err := s.Apply(mat.NewDense(4, 1, []float64{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []float64{1, 1, 1, 2}
	for i, w := range want {
		if out.At(i, 1) != w {
			t.Errorf("lag[%d] = %v, want %v", i, out.At(i, 1), w)
		}
	}
}

func TestTimeSeriesDifferenceValues(t *testing.T) {
	s, err := NewTimeSeries(MethodDifference, 0, nil, 1)
	if err != nil {
		t.Fatalf("NewTimeSeries: %v", err)
	}

	out, _, err := s.Apply(mat.NewDense(4, 1, []float64{1, 3, 6, 10}))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []float64{0, 2, 3, 4}
	for i, w := range want {
		if out.At(i, 1) != w {
			t.Errorf("diff[%d] = %v, want %v", i, out.At(i, 1), w)
		}
	}
}

func TestPipelineIntegration(t *testing.T) {
	outliers, err := NewOutlierRemoval(MethodZScore, 2.0)
	if err != nil {
		t.Fatalf("NewOutlierRemoval: %v", err)
	}
	features, err := NewFeatureEngineering(MethodPolynomial, 2, 0)
	if err != nil {
		t.Fatalf("NewFeatureEngineering: %v", err)
	}

	inst := New("clean_and_expand", "", outliers, features)
	ec := instruction.NewContext(map[string]any{"data": spikedData()})

	res := inst.Execute(context.Background(), ec)
	if res.Status != instruction.StatusCompleted {
		t.Fatalf("status = %s, error = %s", res.Status, res.Error)
	}

	transformed, ok := res.Data["transformed_data"].([][]float64)
	if !ok {
		t.Fatalf("transformed_data missing: %v", res.Data)
	}
	if len(transformed) >= 7 {
		t.Errorf("rows = %d, want outliers removed", len(transformed))
	}
	if len(transformed[0]) <= 2 {
		t.Errorf("cols = %d, want engineered features appended", len(transformed[0]))
	}

	metrics, ok := res.Data["metrics"].(map[string]any)
	if !ok {
		t.Fatalf("metrics missing: %v", res.Data)
	}
	for _, key := range []string{"outlier_removal", "feature_engineering"} {
		if _, ok := metrics[key]; !ok {
			t.Errorf("metrics missing %q", key)
		}
	}
}

func TestPipelineNoData(t *testing.T) {
	inst := New("empty", "")
	res := inst.Execute(context.Background(), instruction.NewContext(nil))
	if res.Status != instruction.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "no data provided") {
		t.Errorf("error = %q, want mention of missing data", res.Error)
	}
}

func TestPipelineInvalidData(t *testing.T) {
	inst := New("bad", "")
	ec := instruction.NewContext(map[string]any{"data": "not a matrix"})
	res := inst.Execute(context.Background(), ec)
	if res.Status != instruction.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Error, "invalid data type") {
		t.Errorf("error = %q, want mention of invalid data", res.Error)
	}
}

func TestPipelineJSONDecodedData(t *testing.T) {
	inst := New("decoded", "", NewAnomalyDetection(2.0))
	ec := instruction.NewContext(map[string]any{
		"data": []any{
			[]any{1.0, 10.0},
			[]any{2.0, 20.0},
			[]any{3.0, 30.0},
			[]any{100.0, 400.0},
			[]any{4.0, 50.0},
			[]any{5.0, 60.0},
			[]any{6.0, 70.0},
		},
	})

	res := inst.Execute(context.Background(), ec)
	if res.Status != instruction.StatusCompleted {
		t.Fatalf("status = %s, error = %s", res.Status, res.Error)
	}
	transformed := res.Data["transformed_data"].([][]float64)
	if len(transformed) != 7 || len(transformed[0]) != 3 {
		t.Errorf("dims = %dx%d, want 7x3", len(transformed), len(transformed[0]))
	}
}

func TestFromConfig(t *testing.T) {
	specs := []any{
		map[string]any{"strategy": "outlier_removal", "method": "z_score", "threshold": 2.0},
		map[string]any{"strategy": "feature_engineering", "method": "polynomial", "degree": float64(2)},
		map[string]any{"strategy": "anomaly_detection", "threshold": 3.0},
		map[string]any{"strategy": "time_series", "method": "lag_features", "lags": []any{float64(1), float64(2)}},
	}

	strategies, err := FromConfig(specs)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if len(strategies) != 4 {
		t.Fatalf("strategies = %d, want 4", len(strategies))
	}

	wantNames := []string{"outlier_removal", "feature_engineering", "anomaly_detection", "time_series"}
	for i, want := range wantNames {
		if strategies[i].Name() != want {
			t.Errorf("strategy %d = %s, want %s", i, strategies[i].Name(), want)
		}
	}
}

func TestFromConfigUnknownStrategy(t *testing.T) {
	if _, err := FromConfig([]any{map[string]any{"strategy": "teleport"}}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestFromConfigBadMethod(t *testing.T) {
	specs := []any{map[string]any{"strategy": "outlier_removal", "method": "guesswork"}}
	if _, err := FromConfig(specs); err == nil {
		t.Fatal("expected error for unknown outlier method")
	}
}
