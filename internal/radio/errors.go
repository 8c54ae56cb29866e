package radio

import (
	"errors"
	"strings"
)

// Sentinel errors for radio operations.
var (
	// ErrUnknownModel is returned by the factory for an unsupported model name.
	ErrUnknownModel = errors.New("radio: unknown model")

	// ErrNotConnected is reported when a command is issued without a link.
	ErrNotConnected = errors.New("radio: not connected")

	// ErrNoComponent is reported when no component exists at (category, index).
	ErrNoComponent = errors.New("radio: no such component")

	// ErrUnsupportedField is reported when a typed accessor targets a field
	// the component's schema does not declare.
	ErrUnsupportedField = errors.New("radio: unsupported field")

	// ErrInvalidValue is reported when a value cannot be converted to its field kind.
	ErrInvalidValue = errors.New("radio: invalid value")

	// ErrOutOfRange is reported when a value lies outside its field's range.
	ErrOutOfRange = errors.New("radio: value out of range")

	// ErrParse is reported when a query response does not carry the expected fields.
	ErrParse = errors.New("radio: unparseable response")
)

// errorText renders err without the package prefix, for last-error strings.
func errorText(err error) string {
	return strings.ReplaceAll(err.Error(), "radio: ", "")
}
