// Package model is a small photovoltaic circuit model: double-diode cells
// composed into series and parallel groups.
//
// Every component caches its IV curve. Invalidate drops the cache down the
// tree; Recompute rebuilds it bottom-up. Curves use the generator
// convention (current positive while delivering power).
//
// Cells sweep their junction voltage Vj over a fixed grid:
//
//	I = IL - I01*(exp(Vj/Vt)-1) - I02*(exp(Vj/(2*Vt))-1) - Vj/Rshunt
//	V = Vj - I*Rs
//
// Series groups add member voltages over a shared current grid; parallel
// groups add member currents over a shared voltage grid. Member curves are
// resampled with piecewise-linear interpolation.
//
// Components round-trip through a YAML artifact (see Marshal and Unmarshal)
// and compare with Equal, which ignores cached curves and solver settings.
package model
