package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/agentflow/agentflow/pkg/instruction"
)

// New creates a transformation instruction that applies the given
// strategies in order. The execution context must hold a numeric
// matrix under "data"; the result carries transformed_data plus
// per-strategy metrics keyed by strategy name.
func New(name, description string, strategies ...Strategy) *instruction.Advanced {
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

		metrics := make(map[string]any, len(strategies))
		for _, s := range strategies {
			var m map[string]any
			data, m, err = s.Apply(data)
			if err != nil {
				return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
			}
			metrics[s.Name()] = m
		}

		rows, _ := data.Dims()
		out := make([][]float64, rows)
		for i := 0; i < rows; i++ {
			out[i] = append([]float64(nil), data.RawRowView(i)...)
		}

		return map[string]any{
			"transformed_data": out,
			"metrics":          metrics,
		}, nil
	})

	return inst
}

// FromConfig builds strategies from decoded configuration, a list of
// maps each naming a "strategy" plus its parameters. Numbers may
// arrive as float64 from JSON or YAML decoding.
func FromConfig(specs []any) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(specs))
	for i, specAny := range specs {
		spec, ok := specAny.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("strategy %d: expected a mapping, got %T", i, specAny)
		}
		name, _ := spec["strategy"].(string)

		var (
			s   Strategy
			err error
		)
		switch name {
		case "outlier_removal":
			method, _ := spec["method"].(string)
			s, err = NewOutlierRemoval(method, floatParam(spec, "threshold"))
		case "feature_engineering":
			method, _ := spec["method"].(string)
			s, err = NewFeatureEngineering(method, intParam(spec, "degree"), intParam(spec, "bins"))
		case "anomaly_detection":
			s = NewAnomalyDetection(floatParam(spec, "threshold"))
		case "time_series":
			method, _ := spec["method"].(string)
			s, err = NewTimeSeries(method, intParam(spec, "window"), intsParam(spec, "lags"), intParam(spec, "order"))
		default:
			return nil, fmt.Errorf("strategy %d: unknown strategy %q", i, name)
		}
		if err != nil {
			return nil, fmt.Errorf("strategy %d: %w", i, err)
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

func numValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func floatParam(spec map[string]any, key string) float64 {
	return numValue(spec[key])
}

func intParam(spec map[string]any, key string) int {
	return int(numValue(spec[key]))
}

func intsParam(spec map[string]any, key string) []int {
	list, ok := spec[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, v := range list {
		out = append(out, int(numValue(v)))
	}
	return out
}

// toMatrix converts supported context payloads into a dense matrix.
// JSON-decoded inputs arrive as []any of []any.
func toMatrix(raw any) (*mat.Dense, error) {
	switch v := raw.(type) {
	case *mat.Dense:
		return v, nil
	case [][]float64:
		if len(v) == 0 || len(v[0]) == 0 {
			return nil, fmt.Errorf("data matrix is empty")
		}
		cols := len(v[0])
		out := mat.NewDense(len(v), cols, nil)
		for i, row := range v {
			if len(row) != cols {
				return nil, fmt.Errorf("ragged data: row %d has %d values, want %d", i, len(row), cols)
			}
			out.SetRow(i, row)
		}
		return out, nil
	case []any:
		rows := make([][]float64, 0, len(v))
		for i, rowAny := range v {
			rowSlice, ok := rowAny.([]any)
			if !ok {
				return nil, fmt.Errorf("invalid data type: row %d is not a numeric array", i)
			}
			row := make([]float64, len(rowSlice))
			for j, cell := range rowSlice {
				switch n := cell.(type) {
				case float64:
					row[j] = n
				case int:
					row[j] = float64(n)
				case json.Number:
					f, err := n.Float64()
					if err != nil {
						return nil, fmt.Errorf("invalid data type: value at [%d][%d] is not numeric", i, j)
					}
					row[j] = f
				default:
					return nil, fmt.Errorf("invalid data type: value at [%d][%d] is not numeric", i, j)
				}
			}
			rows = append(rows, row)
		}
		return toMatrix(rows)
	default:
		return nil, fmt.Errorf("invalid data type: %T", raw)
	}
}
