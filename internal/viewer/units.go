package viewer

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownUnit indicates a wavelength unit without a conversion factor.
var ErrUnknownUnit = errors.New("unknown wavelength unit")

// unitMetres returns the length of one unit in metres.
func unitMetres(unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "angstrom", "aa", "a", "å":
		return 1e-10, true
	case "nm", "nanometer", "nanometre":
		return 1e-9, true
	case "um", "µm", "micron", "micrometer", "micrometre":
		return 1e-6, true
	case "mm":
		return 1e-3, true
	case "cm":
		return 1e-2, true
	case "m":
		return 1, true
	}
	return 0, false
}

// WavelengthScale returns the factor converting wavelengths in from to to.
func WavelengthScale(from, to string) (float64, error) {
	f, ok := unitMetres(from)
	if !ok {
		return math.NaN(), fmt.Errorf("%w `%s`", ErrUnknownUnit, from)
	}
	t, ok := unitMetres(to)
	if !ok {
		return math.NaN(), fmt.Errorf("%w `%s`", ErrUnknownUnit, to)
	}
	return f / t, nil
}

// Observed returns the observed wavelength of a rest-frame line at redshift z.
func Observed(rest, z float64) float64 { return rest * (1 + z) }

// gaussianSmooth convolves y with a Gaussian of the given sigma in samples,
// truncated at four sigma, mirroring the signal at both ends. sigma <= 0
// returns a copy of y.
func gaussianSmooth(y []float64, sigma float64) []float64 {
	out := make([]float64, len(y))
	if sigma <= 0 || len(y) == 0 {
		copy(out, y)
		return out
	}

	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	n := len(y)
	for i := range y {
		var acc float64
		for k := -radius; k <= radius; k++ {
			acc += kernel[k+radius] * y[reflect(i+k, n)]
		}
		out[i] = acc
	}
	return out
}

// reflect maps an out-of-range index onto the signal mirrored about its
// edges (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
