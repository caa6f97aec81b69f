package analysis

import "errors"

var ErrValidation = errors.New("provide a description or an attachment")

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeTimeout    = "ANALYSIS_TIMEOUT"
	ErrorCodeInternal   = "INTERNAL_ERROR"
	ErrorCodeStorage    = "STORAGE_ERROR"
)
