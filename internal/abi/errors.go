package abi

import "fmt"

// ServiceErrorCode is the open, wire-compatible error enum shared by host
// and plugins. Success is only meaningful on the raw channel; the safe
// layer models it as a nil error.
type ServiceErrorCode int32

const (
	Success ServiceErrorCode = iota
	CoreInternalError
	PluginInternalError
	NullFunctionPointer
	InvalidString
	InvalidJSON
	InvalidSchema
	InvalidAPI
	NotFound
	Unauthorized
	Duplicate
	PluginUninit // reserved, unused
	ShuttingDown
)

func (c ServiceErrorCode) String() string {
	switch c {
	case Success:
		return "Success"
	case CoreInternalError:
		return "CoreInternalError"
	case PluginInternalError:
		return "PluginInternalError"
	case NullFunctionPointer:
		return "NullFunctionPointer"
	case InvalidString:
		return "InvalidString"
	case InvalidJSON:
		return "InvalidJson"
	case InvalidSchema:
		return "InvalidSchema"
	case InvalidAPI:
		return "InvalidApi"
	case NotFound:
		return "NotFound"
	case Unauthorized:
		return "Unauthorized"
	case Duplicate:
		return "Duplicate"
	case PluginUninit:
		return "PluginUninit"
	case ShuttingDown:
		return "ShuttingDown"
	default:
		return fmt.Sprintf("ServiceErrorCode(%d)", int32(c))
	}
}

// ServiceError is the canonical error crossing the host/plugin boundary.
type ServiceError struct {
	Code ServiceErrorCode
}

func (e *ServiceError) Error() string { return e.Code.String() }

// NewServiceError wraps a code as a Go error. Returns nil for Success.
func NewServiceError(code ServiceErrorCode) error {
	if code == Success {
		return nil
	}
	return &ServiceError{Code: code}
}

// AsServiceError recovers the ServiceErrorCode from an error produced
// anywhere in the core, defaulting to CoreInternalError for errors that
// do not carry a *ServiceError from NewServiceError in their Unwrap chain.
func AsServiceError(err error) ServiceErrorCode {
	if err == nil {
		return Success
	}
	var se *ServiceError
	for {
		if s, ok := err.(*ServiceError); ok {
			se = s
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
		if err == nil {
			break
		}
	}
	if se != nil {
		return se.Code
	}
	return CoreInternalError
}

// ToRaw converts a ServiceErrorCode to its raw wire value. It is the
// identity function by construction: the code IS the raw representation.
func (c ServiceErrorCode) ToRaw() int32 { return int32(c) }

// ServiceErrorFromRaw converts a raw wire value back to a ServiceErrorCode.
func ServiceErrorFromRaw(raw int32) ServiceErrorCode { return ServiceErrorCode(raw) }
