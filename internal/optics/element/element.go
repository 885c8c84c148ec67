package element

import (
	"fmt"

	"github.com/apertura-labs/apertura/internal/optics/field"
	"github.com/apertura-labs/apertura/internal/optics/wavefront"
)

// Element transforms a wavefront at a single plane.
type Element interface {
	Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error)
	Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error)
}

// Apodizer multiplies the electric field by a fixed complex transmission.
type Apodizer struct {
	Transmission *field.Field
}

// NewApodizer builds an apodizer from a complex transmission field.
func NewApodizer(transmission *field.Field) *Apodizer {
	return &Apodizer{Transmission: transmission}
}

// NewApodizerReal builds an apodizer from a real amplitude mask.
func NewApodizerReal(mask *field.RealField) *Apodizer {
	return &Apodizer{Transmission: mask.Complex()}
}

// Forward multiplies the wavefront by the transmission.
func (a *Apodizer) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return a.apply(w, a.Transmission)
}

// Backward multiplies the wavefront by the conjugate transmission.
func (a *Apodizer) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return a.apply(w, a.Transmission.Copy().Conj())
}

func (a *Apodizer) apply(w *wavefront.Wavefront, t *field.Field) (*wavefront.Wavefront, error) {
	if t.Grid.Size() != w.Grid().Size() {
		return nil, fmt.Errorf("apodizer grid size %d does not match wavefront size %d",
			t.Grid.Size(), w.Grid().Size())
	}
	out := w.Copy()
	if out.IsVector() {
		if err := out.EV.X.MulElem(t); err != nil {
			return nil, err
		}
		if err := out.EV.Y.MulElem(t); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := out.E.MulElem(t); err != nil {
		return nil, err
	}
	return out, nil
}

// PhaseScreen applies a wavelength-dependent phase exp(i k OPD) where OPD is
// an optical path difference map in meters.
type PhaseScreen struct {
	OPD *field.RealField
}

// NewPhaseScreen builds a phase screen from an OPD map.
func NewPhaseScreen(opd *field.RealField) *PhaseScreen {
	return &PhaseScreen{OPD: opd}
}

// Forward applies the phase delay.
func (p *PhaseScreen) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return p.apply(w, 1)
}

// Backward removes the phase delay.
func (p *PhaseScreen) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	return p.apply(w, -1)
}

func (p *PhaseScreen) apply(w *wavefront.Wavefront, sign float64) (*wavefront.Wavefront, error) {
	out := w.Copy()
	k := sign * out.Wavenumber()
	phase := field.NewReal(p.OPD.Grid)
	for i, v := range p.OPD.Data {
		phase.Data[i] = k * v
	}
	if err := out.ApplyPhase(phase); err != nil {
		return nil, err
	}
	return out, nil
}

// Train is an ordered sequence of elements applied front to back.
type Train []Element

// Forward propagates through every element in order.
func (tr Train) Forward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	cur := w
	for i, el := range tr {
		next, err := el.Forward(cur)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

// Backward propagates through every element in reverse order.
func (tr Train) Backward(w *wavefront.Wavefront) (*wavefront.Wavefront, error) {
	cur := w
	for i := len(tr) - 1; i >= 0; i-- {
		next, err := tr[i].Backward(cur)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}
