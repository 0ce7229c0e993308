package domain

// Ray is one radial of moment data: scaled values over range gates at a
// fixed azimuth and elevation. Distances are in meters.
type Ray struct {
	Azimuth          float64 // degrees clockwise from north
	Elevation        float64 // degrees above horizontal
	RangeToFirstGate float64 // center of the first gate
	GateSpacing      float64
	Gates            []float64 // NaN marks censored gates
}

// Sweep is all rays collected at one elevation cut.
type Sweep struct {
	ElevationAngle float64
	Rays           []Ray
}

// Volume is one decoded Level-II scan, reduced to a single named moment.
// It is produced by the archive decoder and consumed by [ExtractComposite];
// nothing else inspects it.
type Volume struct {
	Field  string
	Sweeps []Sweep
}
