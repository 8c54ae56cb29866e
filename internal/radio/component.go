package radio

import (
	"fmt"
	"time"
)

// Category names a kind of hardware facet.
type Category string

// Component categories, in query order.
const (
	CategoryTuner       Category = "tuner"
	CategoryDDC         Category = "ddc"
	CategoryDUC         Category = "duc"
	CategoryTransmitter Category = "transmitter"
	CategoryDataPort    Category = "dataport"
	CategoryGroup       Category = "group"

	// CategoryRadio holds the radio's own top-level settings.
	CategoryRadio Category = "radio"
)

// Categories lists the indexed component categories in query order.
var Categories = []Category{
	CategoryTuner,
	CategoryDDC,
	CategoryDUC,
	CategoryTransmitter,
	CategoryDataPort,
	CategoryGroup,
}

func (c Category) rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

// ParseCategory accepts category names and a few common aliases.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "tuner", "tuners":
		return CategoryTuner, true
	case "ddc", "ddcs", "wbddc", "nbddc":
		return CategoryDDC, true
	case "duc", "ducs":
		return CategoryDUC, true
	case "transmitter", "transmitters", "tx":
		return CategoryTransmitter, true
	case "dataport", "dataports", "port":
		return CategoryDataPort, true
	case "group", "groups":
		return CategoryGroup, true
	case "radio":
		return CategoryRadio, true
	}
	return "", false
}

// Key addresses one component.
type Key struct {
	Category Category
	Index    int
}

func (k Key) String() string {
	return fmt.Sprintf("%s %d", k.Category, k.Index)
}

// commander is the part of the handler a component issues commands through.
type commander interface {
	SendCommand(cmd string, timeout time.Duration) []string
	LastCommandError() string
	setLastCommandError(msg string)
	componentChanged(c *Component)
}

// Component is one configurable hardware facet.
type Component struct {
	category Category
	index    int
	schema   *Schema
	store    *ConfigStore
	dialect  Dialect
	dev      commander
}

func newComponent(cat Category, index int, schema *Schema, dialect Dialect, dev commander) *Component {
	return &Component{
		category: cat,
		index:    index,
		schema:   schema,
		store:    NewConfigStore(schema),
		dialect:  dialect,
		dev:      dev,
	}
}

// Category returns the component category.
func (c *Component) Category() Category { return c.category }

// Index returns the component index within its category.
func (c *Component) Index() int { return c.index }

// Key returns the (category, index) address.
func (c *Component) Key() Key { return Key{Category: c.category, Index: c.index} }

// Schema returns the fixed field and command schema.
func (c *Component) Schema() *Schema { return c.schema }

// Configuration returns a snapshot of the cached configuration.
func (c *Component) Configuration() Values { return c.store.Snapshot() }

// QueryConfiguration reads every queryable command from the radio and
// overwrites the cached fields it reports. A failed or unparseable reply
// leaves the fields of that command untouched, and the first such failure
// is left as the last command error.
//
// Returns:
//   - bool: false if any query failed
func (c *Component) QueryConfiguration() bool {
	updated := false
	var firstErr string
	for _, cmd := range c.schema.Commands {
		if cmd.WriteOnly {
			continue
		}
		lines := c.dev.SendCommand(c.dialect.FormatQuery(cmd, c.index), 0)
		msg := c.dev.LastCommandError()
		if msg == "" {
			values, err := c.dialect.ParseQuery(cmd, lines, c.schema)
			if err == nil {
				c.store.Apply(values)
				updated = true
				continue
			}
			msg = errorText(err)
		}
		if firstErr == "" {
			firstErr = msg
		}
	}
	if updated {
		c.dev.componentChanged(c)
	}
	c.dev.setLastCommandError(firstErr)
	return firstErr == ""
}

// SetConfiguration applies the changed entries of incoming.
//
// Every command touched by a change is sent once, carrying the new value of
// changed fields and the cached value of the others. The fields of each
// command that succeeds are written back; a failing command leaves its
// fields cached as before. Local fields are stored only when every command
// succeeded. Unknown keys are ignored, and an empty or unchanged incoming
// set sends nothing.
//
// Returns:
//   - bool: false if a value is invalid or any command failed
func (c *Component) SetConfiguration(incoming Values) bool {
	changed, err := c.store.Diff(incoming)
	if err != nil {
		c.dev.setLastCommandError(errorText(err))
		return false
	}
	if len(changed) == 0 {
		return true
	}

	ok := true
	var firstErr string
	applied := make(Values, len(changed))

	for _, cmd := range c.schema.Commands {
		if cmd.ReadOnly || !cmd.touches(changed) {
			continue
		}
		merged := make(Values, len(cmd.Fields))
		for _, k := range cmd.Fields {
			if v, ok := changed[k]; ok {
				merged[k] = v
			} else {
				merged[k], _ = c.store.Get(k)
			}
		}

		c.dev.SendCommand(c.dialect.FormatSet(cmd, c.index, merged, c.schema), 0)
		if msg := c.dev.LastCommandError(); msg != "" {
			if ok {
				firstErr = msg
			}
			ok = false
			continue
		}
		for k, v := range merged {
			applied[k] = v
		}
	}

	for k, v := range changed {
		if ok && c.schema.local(k) {
			applied[k] = v
		}
	}

	if len(applied) > 0 {
		c.store.Apply(applied)
		c.dev.componentChanged(c)
	}
	if !ok {
		c.dev.setLastCommandError(firstErr)
	}
	return ok
}

// Enable switches the component on or off.
func (c *Component) Enable(flag bool) bool {
	return c.set(keyEnabled, flag)
}

// IsEnabled reports the cached enabled flag.
func (c *Component) IsEnabled() bool {
	return c.Bool(keyEnabled)
}

// set is the single-key write behind every typed accessor.
func (c *Component) set(key string, v any) bool {
	if !c.schema.Has(key) {
		c.dev.setLastCommandError(errorText(fmt.Errorf("%w: %s has no %s", ErrUnsupportedField, c.Key(), key)))
		return false
	}
	return c.SetConfiguration(Values{key: v})
}

// Bool returns a cached boolean field, false when absent.
func (c *Component) Bool(key string) bool {
	v, _ := c.store.Get(key)
	b, _ := v.(bool)
	return b
}

// Int returns a cached numeric field as int, 0 when absent.
func (c *Component) Int(key string) int {
	v, _ := c.store.Get(key)
	n, _ := toFloat(v)
	return int(n)
}

// Float returns a cached numeric field as float64, 0 when absent.
func (c *Component) Float(key string) float64 {
	v, _ := c.store.Get(key)
	n, _ := toFloat(v)
	return n
}

// Text returns a cached string field, "" when absent.
func (c *Component) Text(key string) string {
	v, _ := c.store.Get(key)
	s, _ := v.(string)
	return s
}
