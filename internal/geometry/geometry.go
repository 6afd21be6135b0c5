// Package geometry implements the crop and scale math used by image templates:
// coordinate parsing, boundary clamping, ratio-preserving centered crops and
// orientation-aware scale-down targets.
//
// The canonical coordinate field order is x,y,width,height. Deployments that
// still serve requests built for the legacy width,height,x,y order can select
// it explicitly via OrderWHXY; the two orders are never guessed or mixed.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rect is a crop rectangle in source-image pixel coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsZero reports whether the rectangle is the 0,0,0,0 sentinel, meaning
// "no crop requested".
func (r Rect) IsZero() bool {
	return r.X == 0 && r.Y == 0 && r.Width == 0 && r.Height == 0
}

// Ratio is a target aspect ratio, width over height.
type Ratio struct {
	Num int
	Den int
}

// Value returns the ratio as a float, width divided by height.
func (r Ratio) Value() float64 {
	return float64(r.Num) / float64(r.Den)
}

// Order selects the field order accepted by ParseCoords.
type Order string

const (
	// OrderXYWH is the canonical order: x,y,width,height.
	OrderXYWH Order = "xywh"
	// OrderWHXY is the legacy order: width,height,x,y.
	OrderWHXY Order = "whxy"
)

// ParseOrder validates a configured coordinate order string.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderXYWH, OrderWHXY:
		return Order(s), nil
	default:
		return "", fmt.Errorf("unknown coordinate order: %q (supported: xywh, whxy)", s)
	}
}

// ratioTolerance is the maximum difference between two aspect ratios that are
// still considered equal by CropToRatio.
const ratioTolerance = 0.01

// ParseCoords parses a comma-separated crop string of exactly four
// non-negative integers in the given field order.
func ParseCoords(s string, order Order) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("expected 4 comma-separated fields, got %d", len(parts))
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("field %d is not an integer: %q", i+1, p)
		}
		if v < 0 {
			return Rect{}, fmt.Errorf("field %d is negative: %d", i+1, v)
		}
		vals[i] = v
	}

	switch order {
	case OrderWHXY:
		return Rect{X: vals[2], Y: vals[3], Width: vals[0], Height: vals[1]}, nil
	default:
		return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
	}
}

// ClampRect fits a crop rectangle into an imgW by imgH image. The origin is
// clamped into the image, width and height are raised to at least 1, and the
// far edges are pulled back inside the bounds. The result always satisfies
// x+width <= imgW and y+height <= imgH with width and height >= 1.
func ClampRect(r Rect, imgW, imgH int) Rect {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X > imgW-1 {
		r.X = imgW - 1
	}
	if r.Y > imgH-1 {
		r.Y = imgH - 1
	}
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	if r.X+r.Width > imgW {
		r.Width = imgW - r.X
	}
	if r.Y+r.Height > imgH {
		r.Height = imgH - r.Y
	}
	return r
}

// ParseRatio parses an aspect ratio string in "w:h" or "w x h" form.
// Both components must be positive integers.
func ParseRatio(s string) (Ratio, error) {
	sep := ":"
	if !strings.Contains(s, sep) {
		sep = "x"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return Ratio{}, fmt.Errorf("expected w:h or w x h, got %q", s)
	}

	num, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || num <= 0 {
		return Ratio{}, fmt.Errorf("ratio width must be a positive integer: %q", parts[0])
	}
	den, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || den <= 0 {
		return Ratio{}, fmt.Errorf("ratio height must be a positive integer: %q", parts[1])
	}

	return Ratio{Num: num, Den: den}, nil
}

// CropToRatio computes the centered crop that brings an imgW by imgH image to
// the target ratio. The longer dimension shrinks; the crop is centered along
// that axis. Returns ok=false when the image is already within tolerance of
// the target ratio and no crop is needed.
func CropToRatio(imgW, imgH int, ratio Ratio) (Rect, bool) {
	current := float64(imgW) / float64(imgH)
	target := ratio.Value()

	if math.Abs(current-target) <= ratioTolerance {
		return Rect{}, false
	}

	if current > target {
		newW := imgH * ratio.Num / ratio.Den
		if newW < 1 {
			newW = 1
		}
		return Rect{X: (imgW - newW) / 2, Y: 0, Width: newW, Height: imgH}, true
	}

	newH := imgW * ratio.Den / ratio.Num
	if newH < 1 {
		newH = 1
	}
	return Rect{X: 0, Y: (imgH - newH) / 2, Width: imgW, Height: newH}, true
}

// Constraints are the dimension ceilings a scale step may apply. MaxSize,
// when set, wins over MaxWidth/MaxHeight and constrains whichever dimension
// is larger.
type Constraints struct {
	MaxSize   int
	MaxWidth  int
	MaxHeight int
}

// ScaleTarget computes the scale-down target for an imgW by imgH image.
// Exactly one of the returned dimensions is non-zero; the other axis scales
// proportionally. Orientation is landscape when width >= height. The
// orientation-matched ceiling is preferred; when it is unset the other
// ceiling applies. Images are never upscaled: ok=false when the source
// already fits.
func ScaleTarget(imgW, imgH int, c Constraints) (width, height int, ok bool) {
	landscape := imgW >= imgH

	if c.MaxSize > 0 {
		if landscape && imgW > c.MaxSize {
			return c.MaxSize, 0, true
		}
		if !landscape && imgH > c.MaxSize {
			return 0, c.MaxSize, true
		}
		return 0, 0, false
	}

	if landscape {
		if c.MaxWidth > 0 && imgW > c.MaxWidth {
			return c.MaxWidth, 0, true
		}
		if c.MaxWidth == 0 && c.MaxHeight > 0 && imgH > c.MaxHeight {
			return 0, c.MaxHeight, true
		}
		return 0, 0, false
	}

	if c.MaxHeight > 0 && imgH > c.MaxHeight {
		return 0, c.MaxHeight, true
	}
	if c.MaxHeight == 0 && c.MaxWidth > 0 && imgW > c.MaxWidth {
		return c.MaxWidth, 0, true
	}
	return 0, 0, false
}
