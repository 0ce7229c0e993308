// Package domain models NEXRAD Level-II radar volumes and the composite
// range-profile tables derived from them.
//
// # Data Source
//
// Volumes come from the NOAA NEXRAD Level-II open-data bucket
// (noaa-nexrad-level2), which holds one archive per radar scan, partitioned
// by date and station:
//
//	<year>/<month>/<day>/<station>/<station><year><month><day>_<HHMMSS>_V06
//	e.g. 2020/06/15/KATX/KATX20200615_120345_V06
//
// Stations are ICAO codes (four letters, e.g. KATX for Seattle/Camano
// Island). The scan timestamp is carried only in the object name; parsing it
// is a strict format contract, see [ParseScanTime]. A trailing ".gz" on
// locally mirrored files is tolerated.
//
// # Moments and Missing Data
//
// Each ray carries one named moment (reflectivity, velocity, ...) as scaled
// physical values over range gates. Gates the decoder censored
// (below-threshold or range-folded words) are NaN. Composite extraction
// additionally censors magnitude-saturated values (|v| >= 1000), which show
// up in malformed archives.
//
// # Composite Profiles
//
// A composite profile fixes an azimuth and projects the volume onto range:
// for every elevation sweep the ray nearest that azimuth is selected, and
// the elementwise maximum across the selected rays, ignoring missing gates,
// gives one value per range bin. See [ExtractComposite].
//
// # Time Series
//
// [TimeSeries] stacks one profile per scan against the scan times, in input
// order. All rows share the range axis of the first appended profile; a
// later profile with a different axis is rejected rather than silently
// coerced.
package domain
