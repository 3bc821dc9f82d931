package peakfinder

import "errors"

var (
	errTooFewPoints  = errors.New("peakfinder: need at least two points to fit a line")
	errDegenerateFit = errors.New("peakfinder: degenerate fit, all x values equal")
)
