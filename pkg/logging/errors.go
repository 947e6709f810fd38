// rexscan/pkg/logging/errors.go

package logging

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	ErrorTypeParse   ErrorType = "PARSE"
	ErrorTypeCompile ErrorType = "COMPILE"
	ErrorTypeCatalog ErrorType = "CATALOG"
	ErrorTypeRuntime ErrorType = "RUNTIME"
	ErrorTypeStore   ErrorType = "STORE"
	ErrorTypeIngest  ErrorType = "INGEST"
	ErrorTypeConfig  ErrorType = "CONFIG"
)

// ScanError is the envelope for failures surfaced to an operator.
type ScanError struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *ScanError {
	return &ScanError{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

// LogError writes err at error level. A ScanError anywhere in the chain
// contributes its type, message and fields.
func LogError(logger zerolog.Logger, err error) {
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	event := logger.Error().Err(scanErr.Err).
		Str("error_type", string(scanErr.Type)).
		Str("message", scanErr.Message)

	for k, v := range scanErr.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(scanErr.Message)
}
