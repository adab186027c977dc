package myerrors

import "errors"

var ErrValidationFailed = errors.New("validation failed")
