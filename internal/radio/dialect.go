package radio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/sdrlink/internal/transport"
)

// noIndex marks commands addressed to the radio itself rather than an
// indexed component.
const noIndex = -1

// Dialect formats commands and parses responses for one protocol family.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string

	// FormatSet renders the command that writes values for c at index.
	// values holds every field of c.
	FormatSet(c Command, index int, values Values, schema *Schema) string

	// FormatQuery renders the command that reads c at index.
	FormatQuery(c Command, index int) string

	// ParseQuery extracts the fields of c from a query response.
	ParseQuery(c Command, lines []string, schema *Schema) (Values, error)

	// ResponseError reports an application error carried in a response.
	ResponseError(lines []string) (string, bool)
}

// CLIDialect is the ASCII "VERB[?] arg, arg" protocol.
type CLIDialect struct {
	// Separator sits between arguments: ", " for most families, " " for some.
	Separator string
}

// Comma-separated and space-separated ASCII dialects.
var (
	CommaDialect = CLIDialect{Separator: ", "}
	SpaceDialect = CLIDialect{Separator: " "}
)

func (d CLIDialect) Name() string {
	if strings.Contains(d.Separator, ",") {
		return "cli-comma"
	}
	return "cli-space"
}

func (d CLIDialect) address(c Command, index int) []string {
	var args []string
	if index != noIndex {
		args = append(args, strconv.Itoa(index))
	}
	for _, a := range c.Args {
		args = append(args, strconv.Itoa(a.Value))
	}
	return args
}

func (d CLIDialect) FormatSet(c Command, index int, values Values, schema *Schema) string {
	args := d.address(c, index)
	for _, k := range c.Fields {
		f, _ := schema.Field(k)
		args = append(args, f.format(values[k]))
	}
	if len(args) == 0 {
		return c.Verb
	}
	return c.Verb + " " + strings.Join(args, d.Separator)
}

func (d CLIDialect) FormatQuery(c Command, index int) string {
	args := d.address(c, index)
	if len(args) == 0 {
		return c.Verb + "?"
	}
	return c.Verb + "? " + strings.Join(args, d.Separator)
}

// ParseQuery reads the line that starts with the command verb and takes
// its trailing tokens as the field values, so "FRQ 900" and "FRQ 1, 900"
// both yield the frequency.
func (d CLIDialect) ParseQuery(c Command, lines []string, schema *Schema) (Values, error) {
	payload, ok := d.findVerb(c.Verb, lines)
	if !ok {
		return nil, fmt.Errorf("%w: no %s line in %q", ErrParse, c.Verb, lines)
	}
	tokens := d.split(payload)
	if len(tokens) < len(c.Fields) {
		return nil, fmt.Errorf("%w: %s has %d fields, want %d", ErrParse, c.Verb, len(tokens), len(c.Fields))
	}
	tokens = tokens[len(tokens)-len(c.Fields):]

	out := make(Values, len(c.Fields))
	for i, k := range c.Fields {
		f, ok := schema.Field(k)
		if !ok {
			continue
		}
		v, err := f.parse(tokens[i])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (d CLIDialect) findVerb(verb string, lines []string) (string, bool) {
	for _, line := range lines {
		word, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		if strings.EqualFold(word, verb) {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func (d CLIDialect) split(payload string) []string {
	if payload == "" {
		return nil
	}
	if !strings.Contains(d.Separator, ",") {
		return strings.Fields(payload)
	}
	parts := strings.Split(payload, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (d CLIDialect) ResponseError(lines []string) (string, bool) {
	for _, line := range lines {
		if text, ok := transport.ErrorText(line); ok {
			return text, true
		}
	}
	return "", false
}

// JSONDialect carries commands as {"cmd": ..., "params": {...}} objects and
// expects {"success": bool, "result": {...}, "error": "..."} replies. Values
// travel in stored units.
type JSONDialect struct{}

type jsonCommand struct {
	Cmd    string         `json:"cmd"`
	Params map[string]any `json:"params"`
}

type jsonReply struct {
	Success *bool          `json:"success"`
	Result  map[string]any `json:"result"`
	Error   string         `json:"error"`
	Msg     string         `json:"msg"`
}

func (JSONDialect) Name() string { return "json" }

func (JSONDialect) verb(c Command) string {
	if c.JSONVerb != "" {
		return c.JSONVerb
	}
	return strings.ToLower(c.Verb)
}

func (JSONDialect) params(c Command, index int) map[string]any {
	p := make(map[string]any, len(c.Args)+len(c.Fields)+1)
	if index != noIndex {
		p["id"] = index
	}
	for _, a := range c.Args {
		p[a.Name] = a.Value
	}
	return p
}

func (d JSONDialect) FormatSet(c Command, index int, values Values, _ *Schema) string {
	p := d.params(c, index)
	for _, k := range c.Fields {
		p[k] = values[k]
	}
	return d.encode(jsonCommand{Cmd: d.verb(c), Params: p})
}

func (d JSONDialect) FormatQuery(c Command, index int) string {
	return d.encode(jsonCommand{Cmd: "q" + d.verb(c), Params: d.params(c, index)})
}

func (JSONDialect) encode(cmd jsonCommand) string {
	data, err := json.Marshal(cmd)
	if err != nil {
		return ""
	}
	return string(data)
}

func (JSONDialect) decode(lines []string) (jsonReply, bool) {
	var r jsonReply
	if err := json.Unmarshal([]byte(strings.Join(lines, "\n")), &r); err != nil {
		return r, false
	}
	return r, true
}

func (d JSONDialect) ParseQuery(c Command, lines []string, schema *Schema) (Values, error) {
	r, ok := d.decode(lines)
	if !ok || r.Result == nil {
		return nil, fmt.Errorf("%w: %s reply is not a result object", ErrParse, d.verb(c))
	}
	out := make(Values, len(c.Fields))
	for _, k := range c.Fields {
		raw, ok := r.Result[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s reply lacks %s", ErrParse, d.verb(c), k)
		}
		f, ok := schema.Field(k)
		if !ok {
			continue
		}
		v, err := f.coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		out[k] = v
	}
	return out, nil
}

func (d JSONDialect) ResponseError(lines []string) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}
	r, ok := d.decode(lines)
	if !ok || r.Success == nil || *r.Success {
		return "", false
	}
	switch {
	case r.Error != "":
		return r.Error, true
	case r.Msg != "":
		return r.Msg, true
	}
	return "command failed", true
}
