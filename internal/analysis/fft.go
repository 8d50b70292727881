package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/san-kum/dynvar/internal/dynamo"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns |c_k| for the non-negative frequencies of the real
// series, after removing its mean. Any length is accepted.
func PowerSpectrum(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	centered := append([]float64(nil), series...)
	floats.AddConst(-floats.Sum(centered)/float64(len(centered)), centered)

	coeff := fourier.NewFFT(len(centered)).Coefficients(nil, centered)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod returns the period, in model time, of the strongest
// non-zero frequency of series sampled every dt.
func DominantPeriod(series []float64, dt float64) (float64, error) {
	ps := PowerSpectrum(series)
	if len(ps) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 samples, got %d", dynamo.ErrDimension, len(series))
	}
	k := floats.MaxIdx(ps[1:]) + 1
	return float64(len(series)) * dt / float64(k), nil
}
