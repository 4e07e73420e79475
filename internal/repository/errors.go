package repository

import "errors"

// ErrDuplicated is returned when an insert hits an existing unique key and was
// skipped.
var ErrDuplicated = errors.New("duplicated record")
