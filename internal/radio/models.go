package radio

import (
	"strconv"
	"strings"

	"github.com/nerrad567/sdrlink/internal/transport"
)

// IdentityQuery is one version or identity command issued after connect.
type IdentityQuery struct {
	Command string

	// Parse copies what it recognises from the reply into info.
	Parse func(lines []string, info map[string]string)
}

// Model describes one radio family: its protocol dialect, how many
// components of each category it declares and their schemas.
type Model struct {
	Name        string
	Description string
	Dialect     Dialect
	Mode        transport.Mode
	Terminator  string
	IndexBase   int
	Counts      map[Category]int

	// Schemas builds the schema of the component at index.
	Schemas map[Category]func(index int) *Schema

	// Settings is the schema of the radio's own top-level configuration.
	Settings *Schema

	Identity []IdentityQuery

	// Prune drops components the hardware turned out not to have, once
	// identity info is known. Optional.
	Prune func(h *Handler)
}

func (m *Model) indexes(cat Category) []int {
	n := m.Counts[cat]
	out := make([]int, n)
	for i := range out {
		out[i] = m.IndexBase + i
	}
	return out
}

var models = map[string]*Model{}

func register(m *Model) {
	models[strings.ToUpper(m.Name)] = m
}

func init() {
	register(ndr308("NDR308", 8))
	register(ndr308("NDR308-4", 4))
	register(ndr472())
	register(ndr651())
	register(ndr551())
}

func ranged(key string, kind Kind, lo, hi float64) Field {
	return Field{Key: key, Kind: kind, Min: lo, Max: hi, Ranged: true}
}

func scaled(f Field, scale float64) Field {
	f.Scale = scale
	return f
}

func single(verb, key string) Command {
	return Command{Verb: verb, Fields: []string{key}}
}

// destinationFields declares slots destination table entries; each entry is
// written by one DIP command.
func destinationFields(slots int) ([]Field, []Command) {
	var fields []Field
	var cmds []Command
	for i := 0; i < slots; i++ {
		fields = append(fields,
			Field{Key: destKey(i, "ip"), Kind: KindString, Default: "0.0.0.0"},
			Field{Key: destKey(i, "mac"), Kind: KindString, Default: "00:00:00:00:00:00"},
			ranged(destKey(i, "sourcePort"), KindInt, 0, 65535),
			ranged(destKey(i, "destPort"), KindInt, 0, 65535),
		)
		cmds = append(cmds, Command{
			Verb:   "DIP",
			Args:   []Arg{{Name: "dest", Value: i}},
			Fields: []string{destKey(i, "ip"), destKey(i, "mac"), destKey(i, "sourcePort"), destKey(i, "destPort")},
		})
	}
	return fields, cmds
}

// groupSchema declares one membership flag per down-converter plus the
// group enable; each membership flag is toggled by its own command.
func groupSchema(members, base int) *Schema {
	fields := []Field{{Key: keyEnabled, Kind: KindBool}}
	cmds := []Command{single("WBGE", keyEnabled)}
	for m := base; m < base+members; m++ {
		fields = append(fields, Field{Key: memberKey(m), Kind: KindBool})
		cmds = append(cmds, Command{
			Verb:   "WBG",
			Args:   []Arg{{Name: "member", Value: m}},
			Fields: []string{memberKey(m)},
		})
	}
	return NewSchema(fields, cmds)
}

func ndr308(name string, tuners int) *Model {
	tuner := NewSchema(
		[]Field{
			{Key: keyEnabled, Kind: KindBool},
			scaled(ranged(keyFrequency, KindFloat, 20e6, 6000e6), 1e6),
			ranged(keyAttenuation, KindInt, 0, 30),
			ranged(keyFilter, KindInt, 0, 3),
		},
		[]Command{
			single("TPWR", keyEnabled),
			single("FRQ", keyFrequency),
			single("ATT", keyAttenuation),
			single("FIF", keyFilter),
		},
	)
	wbddc := NewSchema(
		[]Field{
			ranged(keyRateIndex, KindInt, 0, 15),
			ranged(keyUDPDestination, KindInt, 0, 31),
			{Key: keyEnabled, Kind: KindBool},
			ranged(keyVITAEnable, KindInt, 0, 3),
			ranged(keyStreamID, KindInt, 0, 4294967295),
		},
		[]Command{{
			Verb:   "WBDDC",
			Fields: []string{keyRateIndex, keyUDPDestination, keyEnabled, keyVITAEnable, keyStreamID},
		}},
	)
	destFields, destCmds := destinationFields(8)
	dataPort := NewSchema(
		append([]Field{
			{Key: keyEnabled, Kind: KindBool, Default: true},
			{Key: keySourceIP, Kind: KindString, Default: "0.0.0.0"},
			{Key: keyFlowControl, Kind: KindBool},
		}, destFields...),
		append([]Command{
			single("SIP", keySourceIP),
			single("TGFC", keyFlowControl),
		}, destCmds...),
	)
	group := groupSchema(tuners, 1)

	return &Model{
		Name:        name,
		Description: "8-channel wideband receiver, ASCII over TCP",
		Dialect:     CommaDialect,
		Mode:        transport.ModeTCP,
		Terminator:  ">",
		IndexBase:   1,
		Counts: map[Category]int{
			CategoryTuner:    tuners,
			CategoryDDC:      tuners,
			CategoryDataPort: 4,
			CategoryGroup:    4,
		},
		Schemas: map[Category]func(int) *Schema{
			CategoryTuner:    func(int) *Schema { return tuner },
			CategoryDDC:      func(int) *Schema { return wbddc },
			CategoryDataPort: func(int) *Schema { return dataPort },
			CategoryGroup:    func(int) *Schema { return group },
		},
		Settings: NewSchema(
			[]Field{
				ranged(keyReferenceMode, KindInt, 0, 2),
				ranged(keyBypassMode, KindInt, 0, 1),
				ranged(keyFreqNormalize, KindInt, 0, 1),
			},
			[]Command{
				single("REF", keyReferenceMode),
				single("RBYP", keyBypassMode),
				single("FNR", keyFreqNormalize),
			},
		),
		Identity: cliIdentity,
		Prune:    pruneTuners,
	}
}

func ndr472() *Model {
	return &Model{
		Name:        "NDR472",
		Description: "single-channel receiver, space-delimited ASCII over TCP or serial",
		Dialect:     SpaceDialect,
		Mode:        transport.ModeTCP,
		Terminator:  ">",
		IndexBase:   1,
		Counts: map[Category]int{
			CategoryTuner: 1,
			CategoryDDC:   1,
		},
		Schemas: map[Category]func(int) *Schema{
			CategoryTuner: func(int) *Schema {
				return NewSchema(
					[]Field{
						{Key: keyEnabled, Kind: KindBool},
						scaled(ranged(keyFrequency, KindFloat, 20e6, 3000e6), 1e6),
						ranged(keyAttenuation, KindInt, 0, 46),
					},
					[]Command{
						single("TPWR", keyEnabled),
						single("FRQ", keyFrequency),
						single("ATT", keyAttenuation),
					},
				)
			},
			CategoryDDC: func(int) *Schema {
				return NewSchema(
					[]Field{
						ranged(keyRateIndex, KindInt, 0, 7),
						{Key: keyEnabled, Kind: KindBool},
						ranged(keyFrequency, KindFloat, -20e6, 20e6),
					},
					[]Command{
						{Verb: "DDC", Fields: []string{keyRateIndex, keyEnabled}},
						single("DFRQ", keyFrequency),
					},
				)
			},
		},
		Settings: NewSchema(
			[]Field{ranged(keyReferenceMode, KindInt, 0, 1)},
			[]Command{single("REF", keyReferenceMode)},
		),
		Identity: cliIdentity,
	}
}

func ndr651() *Model {
	tuner := NewSchema(
		[]Field{
			{Key: keyEnabled, Kind: KindBool},
			scaled(ranged(keyFrequency, KindFloat, 2e6, 18000e6), 1e6),
			ranged(keyAttenuation, KindInt, 0, 30),
		},
		[]Command{
			single("TPWR", keyEnabled),
			single("FRQ", keyFrequency),
			single("ATT", keyAttenuation),
		},
	)
	wbddc := NewSchema(
		[]Field{
			ranged(keyRateIndex, KindInt, 0, 15),
			ranged(keyUDPDestination, KindInt, 0, 63),
			{Key: keyEnabled, Kind: KindBool},
			ranged(keyVITAEnable, KindInt, 0, 3),
			ranged(keyStreamID, KindInt, 0, 4294967295),
			ranged(keyFrequency, KindFloat, -40e6, 40e6),
		},
		[]Command{{
			Verb:   "WBDDC",
			Fields: []string{keyRateIndex, keyUDPDestination, keyEnabled, keyVITAEnable, keyStreamID, keyFrequency},
		}},
	)
	duc := NewSchema(
		[]Field{
			{Key: keyEnabled, Kind: KindBool},
			ranged(keyDataPort, KindInt, 0, 2),
			ranged(keyFrequency, KindFloat, -40e6, 40e6),
			ranged(keyAttenuation, KindFloat, -10, 30),
			ranged(keyRateIndex, KindInt, 0, 16),
			ranged(keyTxChannels, KindInt, 0, 3),
			ranged(keyMode, KindInt, 0, 1),
			ranged(keyStreamID, KindInt, 0, 4294967295),
		},
		[]Command{
			single("DUCE", keyEnabled),
			{
				Verb:   "DUC",
				Fields: []string{keyDataPort, keyFrequency, keyAttenuation, keyRateIndex, keyTxChannels, keyMode, keyStreamID},
			},
		},
	)
	tx := NewSchema(
		[]Field{
			{Key: keyEnabled, Kind: KindBool},
			scaled(ranged(keyFrequency, KindFloat, 2e6, 18000e6), 1e6),
			ranged(keyAttenuation, KindInt, 0, 10),
		},
		[]Command{
			single("TXP", keyEnabled),
			single("TXF", keyFrequency),
			single("TXA", keyAttenuation),
		},
	)
	destFields, destCmds := destinationFields(8)
	dataPort := NewSchema(
		append([]Field{
			{Key: keyEnabled, Kind: KindBool, Default: true},
			{Key: keySourceIP, Kind: KindString, Default: "0.0.0.0"},
			{Key: keyFlowControl, Kind: KindBool},
		}, destFields...),
		append([]Command{
			single("SIP", keySourceIP),
			single("TGFC", keyFlowControl),
		}, destCmds...),
	)

	return &Model{
		Name:        "NDR651",
		Description: "2-channel transceiver, ASCII over TCP",
		Dialect:     CommaDialect,
		Mode:        transport.ModeTCP,
		Terminator:  ">",
		IndexBase:   1,
		Counts: map[Category]int{
			CategoryTuner:       2,
			CategoryDDC:         2,
			CategoryDUC:         2,
			CategoryTransmitter: 2,
			CategoryDataPort:    2,
		},
		Schemas: map[Category]func(int) *Schema{
			CategoryTuner:       func(int) *Schema { return tuner },
			CategoryDDC:         func(int) *Schema { return wbddc },
			CategoryDUC:         func(int) *Schema { return duc },
			CategoryTransmitter: func(int) *Schema { return tx },
			CategoryDataPort:    func(int) *Schema { return dataPort },
		},
		Settings: NewSchema(
			[]Field{
				ranged(keyReferenceMode, KindInt, 0, 2),
				ranged(keyBypassMode, KindInt, 0, 1),
			},
			[]Command{
				single("REF", keyReferenceMode),
				single("RBYP", keyBypassMode),
			},
		),
		Identity: cliIdentity,
	}
}

func ndr551() *Model {
	tuner := NewSchema(
		[]Field{
			ranged(keyFrequency, KindFloat, 2e6, 18000e6),
			ranged(keyAttenuation, KindInt, 0, 40),
			{Key: keyEnabled, Kind: KindBool},
		},
		[]Command{{
			Verb:   "TUNER",
			Fields: []string{keyFrequency, keyAttenuation, keyEnabled},
		}},
	)
	wbddc := NewSchema(
		[]Field{
			ranged(keyRateIndex, KindInt, 0, 40),
			{Key: keyEnabled, Kind: KindBool},
			ranged(keyUDPDestination, KindInt, 0, 63),
			ranged(keyVITAEnable, KindInt, 0, 3),
			ranged(keyStreamID, KindInt, 0, 4294967295),
			ranged(keyDataPort, KindInt, 0, 3),
		},
		[]Command{{
			Verb:   "WBDDC",
			Fields: []string{keyRateIndex, keyEnabled, keyUDPDestination, keyVITAEnable, keyStreamID, keyDataPort},
		}},
	)
	destFields, destCmds := destinationFields(4)
	for i := range destCmds {
		destCmds[i].JSONVerb = "dip"
	}
	dataPort := NewSchema(
		append([]Field{
			{Key: keyEnabled, Kind: KindBool, Default: true},
			{Key: keySourceIP, Kind: KindString, Default: "0.0.0.0"},
		}, destFields...),
		append([]Command{{Verb: "SIP", JSONVerb: "e10g", Fields: []string{keySourceIP}}}, destCmds...),
	)

	return &Model{
		Name:        "NDR551",
		Description: "4-channel receiver, JSON over HTTPS",
		Dialect:     JSONDialect{},
		Mode:        transport.ModeHTTPS,
		IndexBase:   0,
		Counts: map[Category]int{
			CategoryTuner:    4,
			CategoryDDC:      4,
			CategoryDataPort: 4,
		},
		Schemas: map[Category]func(int) *Schema{
			CategoryTuner:    func(int) *Schema { return tuner },
			CategoryDDC:      func(int) *Schema { return wbddc },
			CategoryDataPort: func(int) *Schema { return dataPort },
		},
		Settings: NewSchema(
			[]Field{ranged(keyReferenceMode, KindInt, 0, 2)},
			[]Command{{Verb: "REF", Fields: []string{keyReferenceMode}}},
		),
		Identity: jsonIdentity,
	}
}

// pruneTuners drops tuners and their down-converters beyond the tuner
// count reported by the hardware revision query. Groups are rebuilt so
// they only offer membership of the remaining down-converters.
func pruneTuners(h *Handler) {
	n, err := strconv.Atoi(h.versionInfo["tuners"])
	if err != nil || n <= 0 || n >= h.model.Counts[CategoryTuner] {
		return
	}
	for _, cat := range []Category{CategoryTuner, CategoryDDC} {
		for _, idx := range h.Indexes(cat) {
			if idx >= h.model.IndexBase+n {
				h.removeComponent(Key{Category: cat, Index: idx})
			}
		}
	}

	group := groupSchema(n, h.model.IndexBase)
	for _, idx := range h.Indexes(CategoryGroup) {
		h.components[Key{Category: CategoryGroup, Index: idx}] = newComponent(CategoryGroup, idx, group, h.model.Dialect, h)
	}
}
