// Package fourier owns the transforms between conjugate optical planes.
//
// Responsibilities: fast Fourier transforms between a spatial grid and its
// frequency grid (with zero padding and field-of-view cropping), the matrix
// Fourier transform onto arbitrary regular output grids, and a naive
// transformation-matrix DFT used as the reference implementation in tests.
// Key types: FFT, MFT, Naive.
//
// All transforms share the physical convention
//
//	F(k) = dA * sum E(x) exp(-i k.x)
//	E(x) = dK/(2*pi)^2 * sum F(k) exp(+i k.x)
//
// so that Forward followed by Backward is the identity on uncropped grids.
//
// Dependency rule: fourier may depend on grid and field only.
package fourier
