package sentinel

var _ error = Error("")

// Error is a comparable, const-declarable error. errors.Is matches it through
// wrapped chains using the default == comparison.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Is reports whether target is the same sentinel. It lets a sentinel wrapped
// by a value of a different named string type still compare by identity.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t == e
}
