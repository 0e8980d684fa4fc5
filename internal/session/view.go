package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/navigation"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/render"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// Errors returned by the viewer accessors.
var (
	ErrNoSpectrum   = errors.New("no active spectrum with a redshift slider")
	ErrNothingShown = errors.New("no object displayed yet")
)

// SaveRedshift stores the redshift slider of the first active spectrum
// into the review row of the object the viewer displays, which lags the
// selected object while a switch is loading.
func (s *Session) SaveRedshift() (float64, error) {
	var (
		z   float64
		obj viewer.Object
	)
	err := s.Bus.View(func(v viewer.Shown) error {
		if !v.Loaded {
			return ErrNothingShown
		}
		spec := activeSpectrum(v.Elements)
		if spec == nil {
			return ErrNoSpectrum
		}
		z, obj = spec.Redshift(), v.Object
		return nil
	})
	if err != nil {
		return 0, err
	}
	return z, s.Nav.SaveRedshiftAt(obj, z)
}

// SetRedshift stores z as the redshift of the selected object. The slider
// follows only when the viewer already displays that object; otherwise the
// stored value becomes the slider default once the object loads.
func (s *Session) SetRedshift(z float64) error {
	cur, err := s.Nav.Current()
	if err != nil {
		return err
	}
	if err := s.Nav.SaveRedshiftAt(cur, z); err != nil {
		return err
	}
	return s.Bus.View(func(v viewer.Shown) error {
		if !sameObject(v, cur) {
			return nil
		}
		if spec := activeSpectrum(v.Elements); spec != nil {
			spec.SetRedshift(z)
		}
		return nil
	})
}

// Redshift returns the slider value when the viewer displays the selected
// object, else the redshift stored for the selected object.
func (s *Session) Redshift() (float64, bool) {
	cur, err := s.Nav.Current()
	if err != nil {
		return 0, false
	}
	var (
		z     float64
		found bool
	)
	_ = s.Bus.View(func(v viewer.Shown) error {
		if !sameObject(v, cur) {
			return nil
		}
		if spec := activeSpectrum(v.Elements); spec != nil {
			z, found = spec.Redshift(), true
		}
		return nil
	})
	if found {
		return z, true
	}
	return cur.ReviewRedshift()
}

func sameObject(v viewer.Shown, obj viewer.Object) bool {
	return v.Loaded && v.Object.Review == obj.Review && v.Object.Index == obj.Index
}

func activeSpectrum(elems []viewer.Element) *viewer.Spectrum1D {
	for _, e := range elems {
		if spec, ok := e.(*viewer.Spectrum1D); ok && spec.Active() {
			return spec
		}
	}
	return nil
}

// ScreenshotPath returns the screenshot file name of object id:
// <inspection file stem>_ID<id>.png in dir.
func ScreenshotPath(dir, inspectionFile string, id objid.ID) string {
	stem := strings.TrimSuffix(filepath.Base(inspectionFile), filepath.Ext(inspectionFile))
	stem = strings.ReplaceAll(stem, " ", "_")
	return filepath.Join(dir, fmt.Sprintf("%s_ID%s.png", stem, id))
}

// Screenshot renders the object the viewer displays into dir and returns
// the file written. The name and title always describe the rendered
// object, even while a switch to another object is loading.
func (s *Session) Screenshot(dir string) (string, error) {
	file := s.Nav.Path()
	var (
		path string
		n    int
	)
	err := s.Bus.View(func(v viewer.Shown) error {
		if !v.Loaded {
			return ErrNothingShown
		}
		path = ScreenshotPath(dir, file, v.Object.ID)
		var err error
		n, err = render.Screenshot(v.Elements, path, render.Options{Title: navigation.FormatTitle(file, v.Object)})
		return err
	})
	if err != nil {
		s.Log.Error("screenshot failed", "dir", dir, "error", err)
		return "", err
	}
	s.Log.Info("screenshot saved", "path", path, "panels", n)
	return path, nil
}
