// Package transform provides composable numeric transformation
// strategies and an instruction that applies them as a pipeline:
// outlier removal (z-score, IQR, modified z-score), feature
// engineering (polynomial, log, exp, binning), statistical anomaly
// flagging, and time-series features (rolling, lags, differencing),
// built on gonum. Validation requires a numeric "data" matrix in the
// execution context; the result carries the transformed matrix and
// per-strategy metrics.
package transform
