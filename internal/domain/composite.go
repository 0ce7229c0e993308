package domain

import (
	"errors"
	"fmt"
	"math"
)

// saturationLimit censors magnitude-saturated moment values. No physical
// moment reaches |1000|; such values come from corrupt radials.
const saturationLimit = 1000.0

// CompositeProfile is one max-projection profile: the maximum observed value
// per range bin across the rays nearest a fixed azimuth, one ray per sweep.
type CompositeProfile struct {
	Values []float64 // NaN where every contributing gate was missing
	Ranges []float64 // gate centers, meters
}

// ExtractComposite projects a volume onto a single range profile at the
// given azimuth. Per sweep, the angularly nearest ray is selected; values
// with magnitude >= 1000 are treated as missing; the elementwise maximum
// across the selected rays, ignoring missing gates, gives one value per
// bin. The widest selected ray fixes the range axis.
func ExtractComposite(vol *Volume, azimuth float64) (CompositeProfile, error) {
	if vol == nil || len(vol.Sweeps) == 0 {
		return CompositeProfile{}, errors.New("volume has no sweeps")
	}

	selected := make([]Ray, 0, len(vol.Sweeps))
	for _, sw := range vol.Sweeps {
		if ray, ok := nearestRay(sw.Rays, azimuth); ok {
			selected = append(selected, ray)
		}
	}
	if len(selected) == 0 {
		return CompositeProfile{}, fmt.Errorf("no %s rays near azimuth %.1f", vol.Field, azimuth)
	}

	axis := selected[0]
	for _, r := range selected[1:] {
		if len(r.Gates) > len(axis.Gates) {
			axis = r
		}
	}

	values := make([]float64, len(axis.Gates))
	for i := range values {
		values[i] = math.NaN()
	}
	for _, r := range selected {
		for i, v := range r.Gates {
			if math.IsNaN(v) || math.Abs(v) >= saturationLimit {
				continue
			}
			if math.IsNaN(values[i]) || v > values[i] {
				values[i] = v
			}
		}
	}

	ranges := make([]float64, len(axis.Gates))
	for i := range ranges {
		ranges[i] = axis.RangeToFirstGate + float64(i)*axis.GateSpacing
	}
	return CompositeProfile{Values: values, Ranges: ranges}, nil
}

// nearestRay returns the ray with the smallest angular distance to azimuth,
// wrapping at 360.
func nearestRay(rays []Ray, azimuth float64) (Ray, bool) {
	best := -1
	bestDist := math.MaxFloat64
	for i, r := range rays {
		d := math.Abs(math.Mod(r.Azimuth-azimuth+540, 360) - 180)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return Ray{}, false
	}
	return rays[best], true
}
