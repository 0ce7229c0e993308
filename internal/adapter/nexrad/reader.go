// Package nexrad decodes NEXRAD Level-II archives into domain volumes via
// the go-nexrad library. Only this package touches the library; everything
// downstream works with domain types.
package nexrad

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/bwiggs/go-nexrad/archive2"

	"github.com/nguy/AR-Spillover/internal/domain"
)

// Mode selects the decode entry point.
type Mode string

const (
	// ModeGeneric sniffs for gzip wrapping and decompresses into a scoped
	// temporary file before decoding. The input is never rewritten.
	ModeGeneric Mode = "generic"
	// ModeNative decodes a raw Level-II archive with no sniffing.
	ModeNative Mode = "native"
)

// ParseMode validates a mode string from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGeneric, ModeNative:
		return Mode(s), nil
	case "":
		return ModeGeneric, nil
	}
	return "", fmt.Errorf("unknown decode mode %q (want generic or native)", s)
}

// Reader decodes Level-II archives into single-moment volumes.
type Reader struct {
	mode   Mode
	logger *slog.Logger
}

// NewReader creates a Reader with the given decode mode.
func NewReader(mode Mode, logger *slog.Logger) *Reader {
	return &Reader{mode: mode, logger: logger}
}

// DecodeFile decodes a local archive, extracting the named field.
func (r *Reader) DecodeFile(path, field string) (*domain.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrRead, path, err)
	}
	defer f.Close()
	return r.decode(f, field)
}

// Decode spools a stream into a temporary file and decodes it. The temporary
// file is removed before returning regardless of success.
func (r *Reader) Decode(src io.Reader, field string) (*domain.Volume, error) {
	tmp, err := spool(src, "nexrad-*.ar2v")
	if err != nil {
		return nil, err
	}
	defer discard(tmp)
	return r.decode(tmp, field)
}

func (r *Reader) decode(f *os.File, field string) (*domain.Volume, error) {
	if r.mode == ModeGeneric {
		gzipped, err := isGzip(f)
		if err != nil {
			return nil, fmt.Errorf("%w: sniff %s: %v", domain.ErrRead, f.Name(), err)
		}
		if gzipped {
			return r.decodeGzip(f, field)
		}
	}

	ar := archive2.Extract(f)
	vol, err := toVolume(ar, field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, f.Name(), err)
	}
	return vol, nil
}

// decodeGzip decompresses f into a second scoped temporary file and decodes
// that, leaving f untouched.
func (r *Reader) decodeGzip(f *os.File, field string) (*domain.Volume, error) {
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip %s: %v", domain.ErrDecode, f.Name(), err)
	}
	defer gz.Close()

	tmp, err := spool(gz, "nexrad-*.raw")
	if err != nil {
		return nil, err
	}
	defer discard(tmp)

	r.logger.Debug("decompressed gzipped archive", "source", f.Name())

	ar := archive2.Extract(tmp)
	vol, err := toVolume(ar, field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecode, f.Name(), err)
	}
	return vol, nil
}

// spool copies src into a fresh temporary file positioned at offset zero.
func spool(src io.Reader, pattern string) (*os.File, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", domain.ErrRead, err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		discard(tmp)
		return nil, fmt.Errorf("%w: spool archive: %v", domain.ErrRead, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard(tmp)
		return nil, fmt.Errorf("%w: rewind temp file: %v", domain.ErrRead, err)
	}
	return tmp, nil
}

func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

var gzipMagic = []byte{0x1f, 0x8b}

func isGzip(f *os.File) (bool, error) {
	magic := make([]byte, 2)
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return n == 2 && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1], nil
}

// toVolume maps a decoded archive onto the domain model, keeping only the
// named moment. Sweeps come out in elevation-cut order.
func toVolume(ar *archive2.Archive2, field string) (*domain.Volume, error) {
	elevs := make([]int, 0, len(ar.ElevationScans))
	for e := range ar.ElevationScans {
		elevs = append(elevs, e)
	}
	sort.Ints(elevs)

	vol := &domain.Volume{Field: field}
	for _, e := range elevs {
		var sweep domain.Sweep
		for _, m31 := range ar.ElevationScans[e] {
			dm := momentFor(m31, field)
			if dm == nil {
				continue
			}
			gates, err := scaledGates(dm)
			if err != nil {
				return nil, err
			}
			sweep.Rays = append(sweep.Rays, domain.Ray{
				Azimuth:          float64(m31.Header.AzimuthAngle),
				Elevation:        float64(m31.Header.ElevationAngle),
				RangeToFirstGate: float64(dm.DataMomentRange),
				GateSpacing:      float64(dm.DataMomentRangeSampleInterval),
				Gates:            gates,
			})
		}
		if len(sweep.Rays) > 0 {
			sweep.ElevationAngle = sweep.Rays[0].Elevation
			vol.Sweeps = append(vol.Sweeps, sweep)
		}
	}
	if len(vol.Sweeps) == 0 {
		return nil, fmt.Errorf("archive has no %s data", field)
	}
	return vol, nil
}

// momentFor selects the data block for a field name. Field names follow the
// common radar vocabulary rather than the archive's three-letter block names.
func momentFor(m *archive2.Message31, field string) *archive2.DataMoment {
	switch field {
	case "reflectivity":
		return m.ReflectivityData
	case "velocity":
		return m.VelocityData
	case "spectrum_width":
		return m.SwData
	case "differential_reflectivity":
		return m.ZdrData
	case "differential_phase":
		return m.PhiData
	case "cross_correlation_ratio":
		return m.RhoData
	}
	return nil
}

// scaledGates converts raw moment words to physical units per the Level-II
// ICD: value = (word - offset) / scale. Words 0 and 1 are the
// below-threshold and range-folded sentinels; both become NaN.
func scaledGates(dm *archive2.DataMoment) ([]float64, error) {
	n := int(dm.NumberDataMomentGates)
	gates := make([]float64, 0, n)
	scale := float64(dm.Scale)
	offset := float64(dm.Offset)

	switch dm.DataWordSize {
	case 8:
		for i := 0; i < n && i < len(dm.Data); i++ {
			gates = append(gates, scaleWord(float64(dm.Data[i]), scale, offset))
		}
	case 16:
		for i := 0; len(gates) < n && i+1 < len(dm.Data); i += 2 {
			w := binary.BigEndian.Uint16(dm.Data[i:])
			gates = append(gates, scaleWord(float64(w), scale, offset))
		}
	default:
		return nil, fmt.Errorf("unsupported moment word size %d", dm.DataWordSize)
	}
	return gates, nil
}

func scaleWord(w, scale, offset float64) float64 {
	if w == 0 || w == 1 {
		return math.NaN()
	}
	if scale == 0 {
		// Unscaled moments carry the word value directly.
		return w
	}
	return (w - offset) / scale
}
