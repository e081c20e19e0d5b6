package abi

// ForeignString is an opaque, owned string value that can double as a
// tagged error channel. It models the spec's "create/destroy/view/is_valid"
// foreign-string contract; Go's GC retires the explicit destructor, but the
// four named operations are kept so call sites read the same way the
// ABI Bridge documentation describes them.
type ForeignString struct {
	data  []byte
	valid bool
	isErr bool
	code  ServiceErrorCode
}

// NewForeignString creates an owned foreign string from host data.
func NewForeignString(s string) ForeignString {
	return ForeignString{data: []byte(s), valid: true}
}

// NewErrorString creates a foreign string tagged as an error channel
// carrying the given ServiceErrorCode instead of text.
func NewErrorString(code ServiceErrorCode) ForeignString {
	return ForeignString{valid: true, isErr: true, code: code}
}

// IsValid reports whether the string handle is usable. An invalid handle
// (zero value) must never be viewed or treated as an error string.
func (f ForeignString) IsValid() bool { return f.valid }

// View returns the byte slice for a valid, non-error string. Matches the
// spec's view(start, len) operation narrowed to Go slice semantics.
func (f ForeignString) View() []byte { return f.data }

// AsError returns the tagged ServiceErrorCode as an error if this handle
// is an error string, rather than silently producing bogus text.
func (f ForeignString) AsError() (string, error) {
	if !f.valid {
		return "", &ServiceError{Code: InvalidString}
	}
	if f.isErr {
		return "", NewServiceError(f.code)
	}
	return string(f.data), nil
}

// Destroy releases the string handle: it drops the data and marks the
// handle invalid, so IsValid reports false afterwards. Go's GC reclaims
// the memory; no deallocation callback is involved.
func (f *ForeignString) Destroy() {
	f.data = nil
	f.valid = false
}
