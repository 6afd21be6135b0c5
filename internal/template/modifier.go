package template

import (
	"fmt"

	"go.uber.org/zap"

	"imgcache/internal/events"
	"imgcache/internal/geometry"
	"imgcache/internal/imageops"
)

// NewFixedScale returns a factory for templates that apply a single
// orientation-aware scale-down to fixed ceilings, ignoring runtime
// parameters. Landscape images are constrained by maxWidth, portrait images
// by maxHeight; sources that already fit pass through untouched.
func NewFixedScale(maxWidth, maxHeight int) Factory {
	return func(_ Params, _ events.Sink) Modifier {
		return &fixedScaleModifier{
			constraints: geometry.Constraints{MaxWidth: maxWidth, MaxHeight: maxHeight},
		}
	}
}

type fixedScaleModifier struct {
	constraints geometry.Constraints
}

func (m *fixedScaleModifier) Apply(img imageops.Image) error {
	w, h, ok := geometry.ScaleTarget(img.Width(), img.Height(), m.constraints)
	if !ok {
		return nil
	}
	if err := img.Scale(w, h); err != nil {
		return fmt.Errorf("fixed scale failed: %w", err)
	}
	return nil
}

// NewCrop returns the factory for the parametric crop template. Each request
// constructs a fresh modifier from its runtime parameters. The transform
// runs three sub-steps in order: coordinate crop (skipped for the 0,0,0,0
// sentinel), else ratio crop, then scale-down. Malformed coords or ratio
// degrade to "skip this sub-step" with a warning event; only codec errors
// abort.
func NewCrop(order geometry.Order) Factory {
	return func(p Params, sink events.Sink) Modifier {
		return &cropModifier{params: p, order: order, sink: sink}
	}
}

type cropModifier struct {
	params Params
	order  geometry.Order
	sink   events.Sink
}

func (m *cropModifier) Apply(img imageops.Image) error {
	cropped := false

	if m.params.Coords != "" {
		rect, err := geometry.ParseCoords(m.params.Coords, m.order)
		switch {
		case err != nil:
			m.sink.Warn("invalid crop coordinates, skipping crop",
				zap.String("coords", m.params.Coords),
				zap.Error(err),
			)
		case rect.IsZero():
			// no-op sentinel, fall through to the ratio step
		default:
			rect = geometry.ClampRect(rect, img.Width(), img.Height())
			if err := img.Crop(rect); err != nil {
				return fmt.Errorf("coordinate crop failed: %w", err)
			}
			cropped = true
		}
	}

	if !cropped && m.params.Ratio != "" {
		ratio, err := geometry.ParseRatio(m.params.Ratio)
		if err != nil {
			m.sink.Warn("invalid crop ratio, skipping crop",
				zap.String("ratio", m.params.Ratio),
				zap.Error(err),
			)
		} else if rect, ok := geometry.CropToRatio(img.Width(), img.Height(), ratio); ok {
			if err := img.Crop(rect); err != nil {
				return fmt.Errorf("ratio crop failed: %w", err)
			}
		}
	}

	constraints := geometry.Constraints{
		MaxSize:   m.params.MaxSize,
		MaxWidth:  m.params.MaxWidth,
		MaxHeight: m.params.MaxHeight,
	}
	if w, h, ok := geometry.ScaleTarget(img.Width(), img.Height(), constraints); ok {
		if err := img.Scale(w, h); err != nil {
			return fmt.Errorf("scale failed: %w", err)
		}
	}

	return nil
}
