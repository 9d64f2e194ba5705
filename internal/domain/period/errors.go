package period

import "errors"

var errMissingStart = errors.New("period start missing for a resetting cadence")
