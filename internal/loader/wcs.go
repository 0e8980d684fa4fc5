package loader

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidProjection indicates header cards that do not describe a
// supported celestial projection, or a position it cannot map.
var ErrInvalidProjection = errors.New("invalid projection")

const deg = math.Pi / 180

// WCS maps equatorial coordinates to pixels for the zenithal projections
// found in imaging mosaics (TAN and SIN).
type WCS struct {
	proj  string
	crval [2]float64
	crpix [2]float64
	cd    *mat.Dense
	cdInv *mat.Dense
}

// ParseWCS builds a projection from header cards. The linear part comes
// from CDi_j, or from CDELTi combined with PCi_j or CROTA2.
func ParseWCS(m Meta) (*WCS, error) {
	c1, _ := m.String("CTYPE1")
	c2, _ := m.String("CTYPE2")
	p1, p2 := projCode(c1), projCode(c2)
	if p1 == "" || p1 != p2 {
		return nil, fmt.Errorf("%w: CTYPE1=%q CTYPE2=%q", ErrInvalidProjection, c1, c2)
	}
	if p1 != "TAN" && p1 != "SIN" {
		return nil, fmt.Errorf("%w: unsupported projection %s", ErrInvalidProjection, p1)
	}

	w := &WCS{proj: p1}
	for i, axis := range []string{"1", "2"} {
		var ok bool
		if w.crval[i], ok = m.Float("CRVAL" + axis); !ok {
			return nil, fmt.Errorf("%w: missing CRVAL%s", ErrInvalidProjection, axis)
		}
		if w.crpix[i], ok = m.Float("CRPIX" + axis); !ok {
			return nil, fmt.Errorf("%w: missing CRPIX%s", ErrInvalidProjection, axis)
		}
	}

	w.cd = linearPart(m)
	var inv mat.Dense
	if err := inv.Inverse(w.cd); err != nil {
		return nil, fmt.Errorf("%w: singular transform matrix", ErrInvalidProjection)
	}
	w.cdInv = &inv
	return w, nil
}

func projCode(ctype string) string {
	i := strings.LastIndex(ctype, "-")
	if i < 0 || i == len(ctype)-1 {
		return ""
	}
	return strings.ToUpper(ctype[i+1:])
}

func linearPart(m Meta) *mat.Dense {
	_, has11 := m.Get("CD1_1")
	_, has22 := m.Get("CD2_2")
	if has11 || has22 {
		cd := mat.NewDense(2, 2, nil)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				v, _ := m.Float(fmt.Sprintf("CD%d_%d", i+1, j+1))
				cd.Set(i, j, v)
			}
		}
		return cd
	}

	cdelt1, ok := m.Float("CDELT1")
	if !ok {
		cdelt1 = 1
	}
	cdelt2, ok := m.Float("CDELT2")
	if !ok {
		cdelt2 = 1
	}
	pc := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	if rot, ok := m.Float("CROTA2"); ok {
		s, c := math.Sincos(rot * deg)
		pc = mat.NewDense(2, 2, []float64{c, -s * cdelt2 / cdelt1, s * cdelt1 / cdelt2, c})
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v, ok := m.Float(fmt.Sprintf("PC%d_%d", i+1, j+1)); ok {
				pc.Set(i, j, v)
			}
		}
	}
	var cd mat.Dense
	cd.Mul(mat.NewDiagDense(2, []float64{cdelt1, cdelt2}), pc)
	return &cd
}

// WorldToPixel returns 0-based pixel coordinates of (ra, dec) in degrees.
func (w *WCS) WorldToPixel(ra, dec float64) (x, y float64, err error) {
	a, d := ra*deg, dec*deg
	a0, d0 := w.crval[0]*deg, w.crval[1]*deg

	sinD, cosD := math.Sincos(d)
	sinD0, cosD0 := math.Sincos(d0)
	sinDA, cosDA := math.Sincos(a - a0)

	cosC := sinD0*sinD + cosD0*cosD*cosDA
	if cosC <= 0 || math.IsNaN(cosC) {
		return 0, 0, fmt.Errorf("%w: (%g, %g) is on the far side of the projection", ErrInvalidProjection, ra, dec)
	}
	xi := cosD * sinDA
	eta := cosD0*sinD - sinD0*cosD*cosDA
	if w.proj == "TAN" {
		xi /= cosC
		eta /= cosC
	}

	var p mat.VecDense
	p.MulVec(w.cdInv, mat.NewVecDense(2, []float64{xi / deg, eta / deg}))
	x = p.AtVec(0) + w.crpix[0] - 1
	y = p.AtVec(1) + w.crpix[1] - 1
	if math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, fmt.Errorf("%w: (%g, %g) has no pixel position", ErrInvalidProjection, ra, dec)
	}
	return x, y, nil
}

// PixelToWorld returns (ra, dec) in degrees of 0-based pixel coordinates.
func (w *WCS) PixelToWorld(x, y float64) (ra, dec float64) {
	var q mat.VecDense
	q.MulVec(w.cd, mat.NewVecDense(2, []float64{x + 1 - w.crpix[0], y + 1 - w.crpix[1]}))
	xi, eta := q.AtVec(0)*deg, q.AtVec(1)*deg
	a0, d0 := w.crval[0]*deg, w.crval[1]*deg
	sinD0, cosD0 := math.Sincos(d0)

	rho := math.Hypot(xi, eta)
	if rho == 0 {
		return w.crval[0], w.crval[1]
	}
	var sinC, cosC float64
	if w.proj == "TAN" {
		c := math.Atan(rho)
		sinC, cosC = math.Sincos(c)
	} else {
		sinC = rho
		cosC = math.Sqrt(1 - rho*rho)
	}
	d := math.Asin(cosC*sinD0 + eta*sinC*cosD0/rho)
	a := a0 + math.Atan2(xi*sinC, rho*cosD0*cosC-eta*sinD0*sinC)

	ra = math.Mod(a/deg+360, 360)
	return ra, d / deg
}
