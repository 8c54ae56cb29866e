package radio

import (
	"errors"
	"maps"
)

// ConfigStore holds the cached configuration of one component. Its key set
// always equals the schema: it starts from field defaults and ignores keys
// the schema does not declare.
type ConfigStore struct {
	schema *Schema
	values Values
}

// NewConfigStore creates a store populated with schema defaults.
func NewConfigStore(schema *Schema) *ConfigStore {
	s := &ConfigStore{schema: schema, values: make(Values, len(schema.Fields))}
	for _, f := range schema.Fields {
		s.values[f.Key] = f.zero()
	}
	return s
}

// Snapshot returns a copy of every key and value.
func (s *ConfigStore) Snapshot() Values {
	return maps.Clone(s.values)
}

// Get returns the cached value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Normalize drops keys outside the schema and converts the rest to their
// field kinds. Conversion and range failures are joined into one error.
func (s *ConfigStore) Normalize(incoming Values) (Values, error) {
	out := make(Values, len(incoming))
	var errs []error
	for k, v := range incoming {
		f, ok := s.schema.Field(k)
		if !ok {
			continue
		}
		cv, err := f.coerce(v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = cv
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Changed returns the entries of normalized values that differ from the cache.
func (s *ConfigStore) Changed(values Values) Values {
	out := make(Values)
	for k, v := range values {
		if cur, ok := s.values[k]; !ok || cur != v {
			out[k] = v
		}
	}
	return out
}

// Diff normalizes incoming and returns only the changed entries.
func (s *ConfigStore) Diff(incoming Values) (Values, error) {
	values, err := s.Normalize(incoming)
	if err != nil {
		return nil, err
	}
	return s.Changed(values), nil
}

// Apply writes values into the cache. Keys outside the schema are ignored.
func (s *ConfigStore) Apply(values Values) {
	for k, v := range values {
		if s.schema.Has(k) {
			s.values[k] = v
		}
	}
}
