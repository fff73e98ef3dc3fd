// Package celldevs builds cellular (Cell-DEVS) models on top of the sim kernel.
//
// A scenario file holds a "cells" object with a "default" configuration and
// named configurations, each an RFC 7386 merge patch over the default.
// Coupled.BuildModel turns it into one Cell per configured cell id and one
// internal coupling per declared neighbor, from the neighbor's
// neighborhoodOutput port to the cell's neighborhoodInput port.
//
// Cell ids become component ids, so they must be non-empty and must not
// contain '.', the separator of trajectory model paths.
//
// The local rule of a cell is a CellModel; concrete models live in
// sub-packages such as celldevs/sirds.
package celldevs
