// Package field owns sampled functions over a grid.
//
// Responsibilities: scalar complex fields, real-valued fields (masks,
// intensity images, OPD maps), 2-component Jones vector fields and 2x2
// Jones matrix fields, plus the elementwise and per-sample linear-algebra
// operations the propagation and polarization layers need.
// Key types: Field, RealField, VectorField, MatrixField.
//
// Dependency rule: field may depend on grid only.
package field
