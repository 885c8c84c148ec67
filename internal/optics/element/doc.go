// Package element owns the optical elements of the bench: masks, phase
// screens, apertures, and the Jones-calculus polarization elements.
//
// Every element implements the Element interface: Forward propagates a
// wavefront through the element, Backward undoes it (the adjoint for
// non-unitary elements such as polarizers).
// Key types: Element, Apodizer, PhaseScreen, JonesMatrixElement.
//
// Dependency rule: element may depend on grid, field and wavefront only.
package element
