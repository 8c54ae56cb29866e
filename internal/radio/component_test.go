package radio

import (
	"slices"
	"strings"
	"testing"

	"github.com/nerrad567/sdrlink/internal/radio/radiotest"
)

func TestSetConfigurationEmptyIsNoop(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	for _, c := range h.Components() {
		if !c.SetConfiguration(Values{}) {
			t.Errorf("%s SetConfiguration({}) = false", c.Key())
		}
	}
	if sim.Calls() != 0 {
		t.Errorf("hardware calls = %d, want 0", sim.Calls())
	}
}

func TestSetConfigurationUnchangedIsNoop(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("FRQ 1, 800")
	sim.Seed("WBDDC 1, 3, 2, 1, 1, 40001")
	h := connectSim(t, "NDR308", sim)

	for _, c := range h.Components() {
		if !c.SetConfiguration(c.Configuration()) {
			t.Errorf("%s SetConfiguration(snapshot) = false", c.Key())
		}
	}
	if !h.SetConfiguration(h.Configuration()) {
		t.Error("SetConfiguration(settings snapshot) = false")
	}
	if sim.Calls() != 0 {
		t.Errorf("hardware calls = %d, want 0: %q", sim.Calls(), sim.Sent)
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	if !h.SetComponentConfiguration(CategoryTuner, 1, Values{"bogus": 1, "colour": "red"}) {
		t.Errorf("SetComponentConfiguration(unknown keys) = false, LastCommandError %q", h.LastCommandError())
	}
	if sim.Calls() != 0 {
		t.Errorf("hardware calls = %d, want 0", sim.Calls())
	}
	cfg, _ := h.ComponentConfiguration(CategoryTuner, 1)
	if _, ok := cfg["bogus"]; ok {
		t.Error("unknown key stored")
	}
}

func TestSetFrequencyOneCommand(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("FRQ 1, 800")
	h := connectSim(t, "NDR308", sim)

	tuner, _ := h.Component(CategoryTuner, 1)
	if got := tuner.Frequency(); got != 800e6 {
		t.Fatalf("Frequency() after connect = %v, want 800e6", got)
	}

	if !tuner.SetFrequency(900e6) {
		t.Fatalf("SetFrequency() = false, LastCommandError %q", h.LastCommandError())
	}
	if !slices.Equal(sim.Sent, []string{"FRQ 1, 900"}) {
		t.Errorf("sent = %q, want [\"FRQ 1, 900\"]", sim.Sent)
	}
	if got := tuner.Frequency(); got != 900e6 {
		t.Errorf("Frequency() = %v, want 900e6", got)
	}

	sim.Reset()
	if !tuner.SetFrequency(900e6) {
		t.Fatal("repeat SetFrequency() = false")
	}
	if sim.Calls() != 0 {
		t.Errorf("repeat hardware calls = %d, want 0", sim.Calls())
	}
}

func TestGroupedCommandMergesCachedFields(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("WBDDC 1, 3, 2, 1, 1, 40001")
	h := connectSim(t, "NDR308", sim)

	if !h.SetDDCRateIndex(1, 5) {
		t.Fatalf("SetDDCRateIndex() = false, LastCommandError %q", h.LastCommandError())
	}
	if !slices.Equal(sim.Sent, []string{"WBDDC 1, 5, 2, 1, 1, 40001"}) {
		t.Errorf("sent = %q, want one merged WBDDC line", sim.Sent)
	}

	sim.Reset()
	ok := h.SetComponentConfiguration(CategoryDDC, 1, Values{
		"udpDestination": 7,
		"streamId":       40002,
		"enabled":        false,
	})
	if !ok {
		t.Fatalf("SetComponentConfiguration() = false, LastCommandError %q", h.LastCommandError())
	}
	if !slices.Equal(sim.Sent, []string{"WBDDC 1, 5, 7, 0, 1, 40002"}) {
		t.Errorf("sent = %q, want one WBDDC line for three fields", sim.Sent)
	}

	cfg, _ := h.ComponentConfiguration(CategoryDDC, 1)
	want := Values{"rateIndex": 5, "udpDestination": 7, "enabled": false, "vitaEnable": 1, "streamId": 40002}
	for k, v := range want {
		if cfg[k] != v {
			t.Errorf("%s = %v, want %v", k, cfg[k], v)
		}
	}
}

func TestGroupedCommandFailureKeepsCache(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("WBDDC 1, 3, 2, 1, 1, 40001")
	h := connectSim(t, "NDR308", sim)
	before, _ := h.ComponentConfiguration(CategoryDDC, 1)

	sim.Fail["WBDDC"] = "bad arg"
	if h.SetComponentConfiguration(CategoryDDC, 1, Values{"rateIndex": 9, "streamId": 1}) {
		t.Fatal("SetComponentConfiguration() = true on device error")
	}
	if h.LastCommandError() != "bad arg" {
		t.Errorf("LastCommandError() = %q, want %q", h.LastCommandError(), "bad arg")
	}
	if sim.Calls() != 1 {
		t.Errorf("hardware calls = %d, want 1", sim.Calls())
	}

	after, _ := h.ComponentConfiguration(CategoryDDC, 1)
	for k, v := range before {
		if after[k] != v {
			t.Errorf("%s changed to %v after failure, want %v", k, after[k], v)
		}
	}
}

// Independent commands touched by one call are applied one by one; a
// failure in one does not roll back the others.
func TestIndependentCommandsPartialSuccess(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("FRQ 1, 800")
	sim.Seed("ATT 1, 10")
	h := connectSim(t, "NDR308", sim)

	sim.Fail["ATT"] = "attenuator fault"
	ok := h.SetComponentConfiguration(CategoryTuner, 1, Values{"frequency": 900e6, "attenuation": 20})
	if ok {
		t.Fatal("SetComponentConfiguration() = true with one failing command")
	}
	if h.LastCommandError() != "attenuator fault" {
		t.Errorf("LastCommandError() = %q, want %q", h.LastCommandError(), "attenuator fault")
	}
	if sim.Calls() != 2 {
		t.Errorf("hardware calls = %d, want 2", sim.Calls())
	}
	if f, _ := h.TunerFrequency(1); f != 900e6 {
		t.Errorf("TunerFrequency() = %v, want 900e6", f)
	}
	if a, _ := h.TunerAttenuation(1); a != 10 {
		t.Errorf("TunerAttenuation() = %v, want 10", a)
	}
}

// A grouped command resends untouched fields from the cache, not from the
// device. An out-of-band change to those fields is overwritten.
func TestGroupedCommandUsesCacheNotDevice(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("WBDDC 1, 3, 2, 1, 1, 40001")
	h := connectSim(t, "NDR308", sim)

	sim.Seed("WBDDC 1, 3, 9, 1, 1, 40001")
	if !h.SetDDCRateIndex(1, 4) {
		t.Fatalf("SetDDCRateIndex() = false")
	}
	if !slices.Equal(sim.Sent, []string{"WBDDC 1, 4, 2, 1, 1, 40001"}) {
		t.Errorf("sent = %q, want cached destination 2", sim.Sent)
	}
}

func TestAddGroupMember(t *testing.T) {
	sim := radiotest.NewSim(", ")
	sim.Seed("WBG 1, 1, 1")
	sim.Seed("WBG 1, 2, 1")
	h := connectSim(t, "NDR308", sim)

	members, _ := h.GroupMembers(1)
	if !slices.Equal(members, []int{1, 2}) {
		t.Fatalf("GroupMembers() = %v, want [1 2]", members)
	}

	if !h.AddGroupMember(1, 5) {
		t.Fatalf("AddGroupMember() = false, LastCommandError %q", h.LastCommandError())
	}
	if !slices.Equal(sim.Sent, []string{"WBG 1, 5, 1"}) {
		t.Errorf("sent = %q, want [\"WBG 1, 5, 1\"]", sim.Sent)
	}
	members, _ = h.GroupMembers(1)
	if !slices.Equal(members, []int{1, 2, 5}) {
		t.Errorf("GroupMembers() = %v, want [1 2 5]", members)
	}

	sim.Reset()
	if !h.RemoveGroupMember(1, 1) {
		t.Fatal("RemoveGroupMember() = false")
	}
	if !slices.Equal(sim.Sent, []string{"WBG 1, 1, 0"}) {
		t.Errorf("sent = %q, want [\"WBG 1, 1, 0\"]", sim.Sent)
	}

	if h.AddGroupMember(1, 42) {
		t.Error("AddGroupMember(42) = true for a member the group cannot hold")
	}
}

func TestErrorMarkerFailsAccessor(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	sim.Fail["FRQ"] = "bad arg"
	if h.SetTunerFrequency(1, 900e6) {
		t.Fatal("SetTunerFrequency() = true on ERROR reply")
	}
	if h.LastCommandError() != "bad arg" {
		t.Errorf("LastCommandError() = %q, want %q", h.LastCommandError(), "bad arg")
	}
}

func TestOutOfRangeRejected(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	if h.SetTunerFrequency(1, 1e12) {
		t.Error("SetTunerFrequency(1e12) = true, want false")
	}
	if h.LastCommandError() == "" {
		t.Error("LastCommandError() empty after range failure")
	}
	if h.SetTunerAttenuation(1, 2.5) {
		t.Error("SetTunerAttenuation(2.5) = true for integer field")
	}
	if sim.Calls() != 0 {
		t.Errorf("hardware calls = %d, want 0", sim.Calls())
	}
}

func TestLocalFieldNoTraffic(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	port, _ := h.Component(CategoryDataPort, 1)
	if !port.IsEnabled() {
		t.Fatal("data port enabled default = false, want true")
	}
	if !port.Enable(false) {
		t.Fatal("Enable(false) = false")
	}
	if port.IsEnabled() {
		t.Error("IsEnabled() = true after Enable(false)")
	}
	if sim.Calls() != 0 {
		t.Errorf("hardware calls = %d, want 0", sim.Calls())
	}
}

func TestLocalFieldKeptOnCommandFailure(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	sim.Fail["SIP"] = "bad address"
	if h.SetComponentConfiguration(CategoryDataPort, 1, Values{"enabled": false, "sourceIP": "10.0.0.9"}) {
		t.Fatal("SetComponentConfiguration() = true on device error")
	}
	port, _ := h.Component(CategoryDataPort, 1)
	if !port.IsEnabled() {
		t.Error("IsEnabled() = false, want local field unchanged after failure")
	}
	if got := port.SourceIP(); got != "0.0.0.0" {
		t.Errorf("SourceIP() = %q, want 0.0.0.0", got)
	}
}

func TestQueryReportsFirstFailure(t *testing.T) {
	tests := []struct {
		name    string
		seed    []string
		wantOK  bool
		wantErr string
	}{
		{"all answered", []string{"TPWR 1, 1", "FRQ 1, 800", "ATT 1, 10", "FIF 1, 2"}, true, ""},
		{"middle query unanswered", []string{"TPWR 1, 1", "ATT 1, 10", "FIF 1, 2"}, false, "FRQ"},
		{"last query unanswered", []string{"TPWR 1, 1", "FRQ 1, 800", "ATT 1, 10"}, false, "FIF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := radiotest.NewSim(", ")
			for _, cmd := range tt.seed {
				sim.Seed(cmd)
			}
			h := connectSim(t, "NDR308", sim)

			ok := h.QueryComponentConfiguration(CategoryTuner, 1)
			if ok != tt.wantOK {
				t.Errorf("QueryComponentConfiguration() = %v, want %v (error %q)", ok, tt.wantOK, h.LastCommandError())
			}
			if got := h.LastCommandError(); (tt.wantErr == "") != (got == "") || !strings.Contains(got, tt.wantErr) {
				t.Errorf("LastCommandError() = %q, want containing %q", got, tt.wantErr)
			}
			if sim.Calls() != 4 {
				t.Errorf("hardware calls = %d, want 4", sim.Calls())
			}
			if got, _ := h.TunerAttenuation(1); got != 10 {
				t.Errorf("TunerAttenuation() = %v, want 10", got)
			}
		})
	}
}

func TestSetDestinationOneCommand(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR308", sim)

	d := Destination{IP: "10.0.0.20", MAC: "00:11:22:33:44:55", SourcePort: 4991, DestPort: 4992}
	if !h.SetDataPortDestination(2, 3, d) {
		t.Fatalf("SetDataPortDestination() = false, LastCommandError %q", h.LastCommandError())
	}
	want := "DIP 2, 3, 10.0.0.20, 00:11:22:33:44:55, 4991, 4992"
	if !slices.Equal(sim.Sent, []string{want}) {
		t.Errorf("sent = %q, want [%q]", sim.Sent, want)
	}
	got, ok := h.DataPortDestination(2, 3)
	if !ok || got != d {
		t.Errorf("DataPortDestination() = %+v, %v, want %+v", got, ok, d)
	}

	if _, ok := h.DataPortDestination(2, 99); ok {
		t.Error("DataPortDestination(99) ok = true")
	}
}

func TestStandaloneFrequencyCommand(t *testing.T) {
	sim := radiotest.NewSim(" ")
	sim.Seed("DDC 1 2 1")
	sim.Seed("DFRQ 1 0")
	h := connectSim(t, "NDR472", sim)

	if !h.SetDDCFrequency(1, 12500) {
		t.Fatalf("SetDDCFrequency() = false, LastCommandError %q", h.LastCommandError())
	}
	if !slices.Equal(sim.Sent, []string{"DFRQ 1 12500"}) {
		t.Errorf("sent = %q, want [\"DFRQ 1 12500\"]", sim.Sent)
	}

	sim.Reset()
	if !h.SetDDCRateIndex(1, 4) {
		t.Fatal("SetDDCRateIndex() = false")
	}
	if !slices.Equal(sim.Sent, []string{"DDC 1 4 1"}) {
		t.Errorf("sent = %q, want [\"DDC 1 4 1\"]", sim.Sent)
	}
}

func TestTransceiverAccessors(t *testing.T) {
	sim := radiotest.NewSim(", ")
	h := connectSim(t, "NDR651", sim)

	steps := []struct {
		name string
		do   func() bool
		want string
	}{
		{"transmitter frequency", func() bool { return h.SetTransmitterFrequency(1, 2400e6) }, "TXF 1, 2400"},
		{"transmitter enable", func() bool { return h.EnableTransmitter(2, true) }, "TXP 2, 1"},
		{"duc frequency", func() bool { return h.SetDUCFrequency(1, 1e6) }, "DUC 1, 0, 1000000, 0, 0, 0, 0, 0"},
		{"duc enable", func() bool { return h.EnableDUC(1, true) }, "DUCE 1, 1"},
		{"ddc tunable in group", func() bool { return h.SetDDCFrequency(2, -250000) }, "WBDDC 2, 0, 0, 0, 0, 0, -250000"},
	}

	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			sim.Reset()
			if !tt.do() {
				t.Fatalf("call = false, LastCommandError %q", h.LastCommandError())
			}
			if !slices.Equal(sim.Sent, []string{tt.want}) {
				t.Errorf("sent = %q, want [%q]", sim.Sent, tt.want)
			}
		})
	}

	if _, ok := h.TransmitterFrequency(3); ok {
		t.Error("TransmitterFrequency(3) ok = true for missing transmitter")
	}
	if _, ok := h.DUCFrequency(1); !ok {
		t.Error("DUCFrequency(1) ok = false")
	}
}
