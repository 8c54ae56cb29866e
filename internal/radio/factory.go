package radio

import (
	"fmt"
	"sort"
	"strings"
)

// NewHandler creates a handler for the named model. Names are matched
// case-insensitively.
//
// Returns:
//   - *Handler: an unconnected handler with every declared component
//   - error: ErrUnknownModel if the model is not supported
func NewHandler(model string, opts ...Option) (*Handler, error) {
	m, ok := LookupModel(model)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return newHandler(m, opts...), nil
}

// LookupModel returns the model description for name.
func LookupModel(name string) (*Model, bool) {
	m, ok := models[strings.ToUpper(strings.TrimSpace(name))]
	return m, ok
}

// IsSupported reports whether NewHandler accepts name.
func IsSupported(name string) bool {
	_, ok := LookupModel(name)
	return ok
}

// Models returns the supported model names, sorted.
func Models() []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}
