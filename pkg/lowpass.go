package osiris

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// LowPass drops every Fourier component above cutoff times the Nyquist
// frequency and rebuilds the waveform from the magnitude of the inverse
// transform. The input is not modified.
func LowPass(samples []float64, cutoff float64) []float64 {
	n := len(samples)
	if n < 2 || cutoff >= 1 {
		out := make([]float64, n)
		copy(out, samples)
		return out
	}

	seq := make([]complex128, n)
	for i, s := range samples {
		seq[i] = complex(s, 0)
	}

	fft := fourier.NewCmplxFFT(n)
	coeff := fft.Coefficients(nil, seq)

	nyquist := n / 2
	keep := int(cutoff * float64(nyquist))
	for i := range coeff {
		// Bins above n/2 hold the negative frequencies.
		k := i
		if i > nyquist {
			k = n - i
		}
		if k > keep {
			coeff[i] = 0
		}
	}

	rebuilt := fft.Sequence(nil, coeff)
	out := make([]float64, n)
	for i, c := range rebuilt {
		out[i] = cmplx.Abs(c) / float64(n)
	}
	return out
}
