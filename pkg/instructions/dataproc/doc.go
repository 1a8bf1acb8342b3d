// Package dataproc provides a data-processing instruction: column
// standardization, projection onto principal components, and k-means
// clustering, built on gonum. Validation requires a numeric "data"
// matrix in the execution context; the result carries the reduced
// matrix, cluster assignments, and pipeline metrics including the
// explained variance of the kept components.
package dataproc
