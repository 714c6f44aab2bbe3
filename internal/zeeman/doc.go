// Package zeeman reduces measured ring radii to the Bohr magneton.
//
// The reduction is a chain of pure functions over scalars:
//
//	radius (mm) -> incidence angle -> refraction angle -> wavelength shift -> energy shift
//
// ProcessMeasurement runs the chain for one observation and EstimateBohrMagneton
// fits energy shift against field over many. Nothing in this package keeps
// state or logs; optional values are pointers and nil means undefined.
package zeeman
