package resolver

import "errors"

var errMissingStart = errors.New("resetting cadence without a period start")
