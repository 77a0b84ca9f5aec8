package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrSVD = errors.New("analysis: singular value decomposition failed")

// FiniteTimeLyapunov estimates the largest finite-time Lyapunov exponent of
// a flow map over horizon T from its Jacobian (the state transition matrix):
//
//	λ ≈ ln(σ_max(Φ)) / T
//
// A positive value means nearby trajectories separate.
func FiniteTimeLyapunov(phi mat.Matrix, T float64) (float64, error) {
	spectrum, err := LyapunovSpectrum(phi, T)
	if err != nil {
		return 0, err
	}
	return spectrum[0], nil
}

// LyapunovSpectrum returns ln(σ_i)/T for every singular value of phi, largest
// first. Zero singular values give -Inf.
func LyapunovSpectrum(phi mat.Matrix, T float64) ([]float64, error) {
	if T <= 0 {
		return nil, errors.New("analysis: horizon must be positive")
	}
	var svd mat.SVD
	if ok := svd.Factorize(phi, mat.SVDNone); !ok {
		return nil, ErrSVD
	}
	values := svd.Values(nil)
	spectrum := make([]float64, len(values))
	for i, s := range values {
		spectrum[i] = math.Log(s) / T
	}
	return spectrum, nil
}
