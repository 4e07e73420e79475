package errorx

import "errors"

// Is reports whether any error in err's chain is an Error carrying the given
// code.
func Is(err error, code Code) bool {
	var errx Error
	if errors.As(err, &errx) {
		return errx.Code == code
	}

	return false
}

// CodeOf returns the code of the Error in err's chain, or Unknown's code.
func CodeOf(err error) Code {
	var errx Error
	if errors.As(err, &errx) {
		return errx.Code
	}

	return Unknown.Code
}
