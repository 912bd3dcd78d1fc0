package tiling

// Intensity bounds. Values outside are replaced by DefaultIntensity.
const (
	DefaultIntensity = 4.0
	MinIntensity     = 1.0
	MaxIntensity     = 16.0
)

// Policy holds the per-depth refinement thresholds of a tiling job. Higher
// intensity means tighter tolerances and more retained detail.
type Policy struct {
	Intensity float64
}

// NewPolicy returns a policy, falling back to DefaultIntensity when intensity
// is outside [MinIntensity, MaxIntensity].
func NewPolicy(intensity float64) Policy {
	if intensity < MinIntensity || intensity > MaxIntensity {
		intensity = DefaultIntensity
	}
	return Policy{Intensity: intensity}
}

func (p Policy) intensity() float64 {
	if p.Intensity < MinIntensity || p.Intensity > MaxIntensity {
		return DefaultIntensity
	}
	return p.Intensity
}

// deviationFactor is the fraction of the tile size tolerated between the
// elevation samples and the mesh at depth.
func deviationFactor(depth int) float64 {
	switch {
	case depth < 5:
		return 0.01
	case depth <= 8:
		return 0.015
	case depth == 9:
		return 0.02
	case depth == 10:
		return 0.03
	case depth == 11:
		return 0.04
	case depth == 12:
		return 0.05
	case depth <= 15:
		return 0.06
	case depth == 16:
		return 0.065
	default:
		return 0.07
	}
}

// MaxAllowedDeviation returns the largest vertical distance, in meters,
// allowed between an elevation sample and the triangle above it at depth.
func (p Policy) MaxAllowedDeviation(depth int) (float64, error) {
	size, err := TileSizeInMeters(depth)
	if err != nil {
		return 0, err
	}
	return size * deviationFactor(depth) / p.intensity(), nil
}

// RefinementIterations returns the fixed number of refinement passes run on
// a mesh at depth.
func (p Policy) RefinementIterations(depth int) int {
	if CheckDepth(depth) != nil {
		return 5
	}
	return 15
}

// MaxTriangleSize returns the edge length in meters above which a triangle at
// depth is always refined.
func (p Policy) MaxTriangleSize(depth int) (float64, error) {
	size, err := TileSizeInMeters(depth)
	if err != nil {
		return 0, err
	}
	maxSize := size / 2.5
	if depth < 11 {
		maxSize *= 0.2
	}
	return maxSize, nil
}

// MinTriangleSize returns the edge length in meters below which a triangle at
// depth is never refined.
func (p Policy) MinTriangleSize(depth int) (float64, error) {
	size, err := TileSizeInMeters(depth)
	if err != nil {
		return 0, err
	}
	minSize := size * 0.1 / p.intensity()
	switch {
	case depth > 17:
		minSize *= 0.75
	case depth > 15:
		// unchanged
	case depth > 14:
		minSize *= 1.125
	case depth > 10:
		minSize *= 1.25
	}
	return minSize, nil
}

// Thresholds bundles the policy values for one depth.
type Thresholds struct {
	Depth           int
	MaxDeviation    float64
	MinTriangleSize float64
	MaxTriangleSize float64
	Iterations      int
}

// Thresholds evaluates the policy at depth.
func (p Policy) Thresholds(depth int) (Thresholds, error) {
	dev, err := p.MaxAllowedDeviation(depth)
	if err != nil {
		return Thresholds{}, err
	}
	minSize, err := p.MinTriangleSize(depth)
	if err != nil {
		return Thresholds{}, err
	}
	maxSize, err := p.MaxTriangleSize(depth)
	if err != nil {
		return Thresholds{}, err
	}
	return Thresholds{
		Depth:           depth,
		MaxDeviation:    dev,
		MinTriangleSize: minSize,
		MaxTriangleSize: maxSize,
		Iterations:      p.RefinementIterations(depth),
	}, nil
}
