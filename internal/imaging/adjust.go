package imaging

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AdjustmentKind names one step of a filter chain.
type AdjustmentKind string

const (
	KindBrightness AdjustmentKind = "brightness"
	KindContrast   AdjustmentKind = "contrast"
	KindSaturate   AdjustmentKind = "saturate"
	KindHueRotate  AdjustmentKind = "hue-rotate"
	KindSepia      AdjustmentKind = "sepia"
	KindGrayscale  AdjustmentKind = "grayscale"
	KindInvert     AdjustmentKind = "invert"
)

// Adjustment is a single parsed filter function. Amount is a plain factor
// (percentages divided by 100) or, for hue-rotate, an angle in degrees.
type Adjustment struct {
	Kind   AdjustmentKind `json:"kind"`
	Amount float64        `json:"amount"`
}

// ParseDescriptor parses a filter string such as
// "sepia(0.2) contrast(1.2) hue-rotate(-10deg)". "none" and the empty string
// yield an empty chain.
func ParseDescriptor(desc string) ([]Adjustment, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" || strings.EqualFold(desc, "none") {
		return nil, nil
	}
	var out []Adjustment
	rest := desc
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		open := strings.IndexByte(rest, '(')
		if open <= 0 {
			return nil, fmt.Errorf("imaging: malformed filter %q", rest)
		}
		end := strings.IndexByte(rest, ')')
		if end < open {
			return nil, fmt.Errorf("imaging: unterminated filter %q", rest)
		}
		kind := AdjustmentKind(strings.ToLower(strings.TrimSpace(rest[:open])))
		arg := strings.TrimSpace(rest[open+1 : end])
		adj, err := parseAdjustment(kind, arg)
		if err != nil {
			return nil, err
		}
		out = append(out, adj)
		rest = rest[end+1:]
	}
	return out, nil
}

func parseAdjustment(kind AdjustmentKind, arg string) (Adjustment, error) {
	switch kind {
	case KindHueRotate:
		deg, err := parseAngle(arg)
		if err != nil {
			return Adjustment{}, err
		}
		return Adjustment{Kind: kind, Amount: deg}, nil
	case KindBrightness, KindContrast, KindSaturate, KindSepia, KindGrayscale, KindInvert:
		amount := 1.0
		if arg != "" {
			v, err := parseAmount(arg)
			if err != nil {
				return Adjustment{}, err
			}
			amount = v
		}
		if amount < 0 {
			return Adjustment{}, fmt.Errorf("imaging: negative amount for %s", kind)
		}
		return Adjustment{Kind: kind, Amount: amount}, nil
	default:
		return Adjustment{}, fmt.Errorf("imaging: unsupported filter function %q", kind)
	}
}

func parseAmount(arg string) (float64, error) {
	if strings.HasSuffix(arg, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(arg, "%")), 64)
		if err != nil {
			return 0, fmt.Errorf("imaging: invalid percentage %q: %w", arg, err)
		}
		return v / 100, nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("imaging: invalid amount %q: %w", arg, err)
	}
	return v, nil
}

func parseAngle(arg string) (float64, error) {
	if arg == "" || arg == "0" {
		return 0, nil
	}
	units := []struct {
		suffix string
		scale  float64
	}{
		{"deg", 1},
		{"grad", 0.9},
		{"rad", 180 / math.Pi},
		{"turn", 360},
	}
	for _, u := range units {
		if strings.HasSuffix(arg, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(arg, u.suffix)), 64)
			if err != nil {
				return 0, fmt.Errorf("imaging: invalid angle %q: %w", arg, err)
			}
			return v * u.scale, nil
		}
	}
	return 0, fmt.Errorf("imaging: angle %q needs a unit", arg)
}

// matrix is a 3x3 colour transform applied to linear 0..1 RGB.
type matrix [3][3]float64

// step is one compiled adjustment: either a matrix or a per-channel
// linear map c' = c*slope + intercept.
type step struct {
	m         *matrix
	slope     float64
	intercept float64
}

func compile(chain []Adjustment) []step {
	steps := make([]step, 0, len(chain))
	for _, adj := range chain {
		switch adj.Kind {
		case KindBrightness:
			steps = append(steps, step{slope: adj.Amount})
		case KindContrast:
			steps = append(steps, step{slope: adj.Amount, intercept: 0.5 - 0.5*adj.Amount})
		case KindInvert:
			a := math.Min(adj.Amount, 1)
			steps = append(steps, step{slope: 1 - 2*a, intercept: a})
		case KindSaturate:
			m := saturateMatrix(adj.Amount)
			steps = append(steps, step{m: &m})
		case KindHueRotate:
			m := hueRotateMatrix(adj.Amount)
			steps = append(steps, step{m: &m})
		case KindSepia:
			m := sepiaMatrix(math.Min(adj.Amount, 1))
			steps = append(steps, step{m: &m})
		case KindGrayscale:
			m := grayscaleMatrix(math.Min(adj.Amount, 1))
			steps = append(steps, step{m: &m})
		}
	}
	return steps
}

func (s step) apply(r, g, b float64) (float64, float64, float64) {
	if s.m == nil {
		return clamp01(r*s.slope + s.intercept), clamp01(g*s.slope + s.intercept), clamp01(b*s.slope + s.intercept)
	}
	m := s.m
	return clamp01(m[0][0]*r + m[0][1]*g + m[0][2]*b),
		clamp01(m[1][0]*r + m[1][1]*g + m[1][2]*b),
		clamp01(m[2][0]*r + m[2][1]*g + m[2][2]*b)
}

func saturateMatrix(s float64) matrix {
	return matrix{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
}

func hueRotateMatrix(deg float64) matrix {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return matrix{
		{0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928},
		{0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283},
		{0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072},
	}
}

func sepiaMatrix(a float64) matrix {
	s := 1 - a
	return matrix{
		{0.393 + 0.607*s, 0.769 - 0.769*s, 0.189 - 0.189*s},
		{0.349 - 0.349*s, 0.686 + 0.314*s, 0.168 - 0.168*s},
		{0.272 - 0.272*s, 0.534 - 0.534*s, 0.131 + 0.869*s},
	}
}

func grayscaleMatrix(a float64) matrix {
	s := 1 - a
	return matrix{
		{0.2126 + 0.7874*s, 0.7152 - 0.7152*s, 0.0722 - 0.0722*s},
		{0.2126 - 0.2126*s, 0.7152 + 0.2848*s, 0.0722 - 0.0722*s},
		{0.2126 - 0.2126*s, 0.7152 - 0.7152*s, 0.0722 + 0.9278*s},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
