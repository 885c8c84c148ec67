// Package propagation owns the free-space propagators: Fraunhofer
// propagation from a pupil to a focal plane, and Fresnel and angular
// spectrum propagation over a finite distance. All propagators implement
// element.Element and cache their per-wavelength plans, so repeated
// propagation at the same wavelength reuses the planned transform.
// Key types: Fraunhofer, Fresnel, AngularSpectrum.
//
// Propagators are not safe for concurrent use; the plan caches are
// unsynchronized.
//
// Dependency rule: propagation may depend on grid, field, fourier,
// wavefront and element only.
package propagation
