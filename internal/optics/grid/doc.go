// Package grid owns the spatial sampling layer of the optical model.
//
// Responsibilities: regular Cartesian sampling grids, pupil/focal/FFT grid
// factories, polar coordinate views, and supersampling helpers.
// Key types: Grid.
//
// Dependency rule: grid depends on nothing else in internal/optics.
package grid
