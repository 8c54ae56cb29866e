package radio

// Arg is a literal argument placed between the component index and the
// field values of a command, such as a group member or destination slot.
type Arg struct {
	Name  string
	Value int
}

// Command maps a hardware command line onto schema fields.
//
// A command with several fields is a grouped command: it is always sent as
// one line carrying every field.
type Command struct {
	// Verb is the ASCII command word, e.g. "FRQ" or "WBDDC".
	Verb string

	// JSONVerb names the command in the JSON dialect. Empty means the
	// lower-cased Verb.
	JSONVerb string

	Args   []Arg
	Fields []string

	// ReadOnly commands are only ever queried.
	ReadOnly bool

	// WriteOnly commands have no query form.
	WriteOnly bool
}

func (c Command) touches(v Values) bool {
	for _, k := range c.Fields {
		if _, ok := v[k]; ok {
			return true
		}
	}
	return false
}

// Schema is the fixed set of fields and commands of one component.
type Schema struct {
	Fields   []Field
	Commands []Command

	byKey    map[string]int
	writable map[string]bool
	wired    map[string]bool
}

// NewSchema indexes fields and commands. Fields named by no command are
// local: they are stored without any hardware traffic.
func NewSchema(fields []Field, commands []Command) *Schema {
	s := &Schema{
		Fields:   fields,
		Commands: commands,
		byKey:    make(map[string]int, len(fields)),
		writable: make(map[string]bool),
		wired:    make(map[string]bool),
	}
	for i, f := range fields {
		s.byKey[f.Key] = i
	}
	for _, c := range commands {
		for _, k := range c.Fields {
			s.wired[k] = true
			if !c.ReadOnly {
				s.writable[k] = true
			}
		}
	}
	return s
}

// Field returns the declaration for key.
func (s *Schema) Field(key string) (Field, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Has reports whether key is declared.
func (s *Schema) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Keys returns the declared keys in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

func (s *Schema) local(key string) bool {
	return !s.wired[key]
}
