// Package sentinel provides a string-backed error type that can be declared
// as a const. testframe uses it for every exported sentinel so callers can
// match failures with errors.Is without the values being reassignable.
package sentinel
