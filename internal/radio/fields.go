package radio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field keys shared across models.
const (
	keyEnabled        = "enabled"
	keyFrequency      = "frequency"
	keyAttenuation    = "attenuation"
	keyFilter         = "filter"
	keyRateIndex      = "rateIndex"
	keyUDPDestination = "udpDestination"
	keyVITAEnable     = "vitaEnable"
	keyStreamID       = "streamId"
	keyDataPort       = "dataPort"
	keyTxChannels     = "txChannels"
	keyMode           = "mode"
	keySourceIP       = "sourceIP"
	keyFlowControl    = "flowControl"
	keyReferenceMode  = "referenceMode"
	keyBypassMode     = "bypassMode"
	keyFreqNormalize  = "freqNormalization"

	memberPrefix = "member"
	destPrefix   = "dest"
)

func memberKey(member int) string {
	return memberPrefix + strconv.Itoa(member)
}

func destKey(slot int, field string) string {
	return fmt.Sprintf("%s%d.%s", destPrefix, slot, field)
}

// Frequency returns the cached frequency in Hz.
func (c *Component) Frequency() float64 { return c.Float(keyFrequency) }

// SetFrequency sets the frequency in Hz.
func (c *Component) SetFrequency(hz float64) bool { return c.set(keyFrequency, hz) }

// Attenuation returns the cached attenuation in dB.
func (c *Component) Attenuation() float64 { return c.Float(keyAttenuation) }

// SetAttenuation sets the attenuation in dB.
func (c *Component) SetAttenuation(db float64) bool { return c.set(keyAttenuation, db) }

// Filter returns the cached IF filter index.
func (c *Component) Filter() int { return c.Int(keyFilter) }

// SetFilter selects the IF filter.
func (c *Component) SetFilter(filter int) bool { return c.set(keyFilter, filter) }

// RateIndex returns the cached decimation or interpolation rate index.
func (c *Component) RateIndex() int { return c.Int(keyRateIndex) }

// SetRateIndex sets the rate index.
func (c *Component) SetRateIndex(index int) bool { return c.set(keyRateIndex, index) }

// UDPDestination returns the cached destination table index.
func (c *Component) UDPDestination() int { return c.Int(keyUDPDestination) }

// SetUDPDestination sets the destination table index.
func (c *Component) SetUDPDestination(dest int) bool { return c.set(keyUDPDestination, dest) }

// VITAEnable returns the cached VITA framing mode.
func (c *Component) VITAEnable() int { return c.Int(keyVITAEnable) }

// SetVITAEnable sets the VITA framing mode.
func (c *Component) SetVITAEnable(mode int) bool { return c.set(keyVITAEnable, mode) }

// StreamID returns the cached VITA stream identifier.
func (c *Component) StreamID() int { return c.Int(keyStreamID) }

// SetStreamID sets the VITA stream identifier.
func (c *Component) SetStreamID(id int) bool { return c.set(keyStreamID, id) }

// SourceIP returns the cached data port source address.
func (c *Component) SourceIP() string { return c.Text(keySourceIP) }

// SetSourceIP sets the data port source address.
func (c *Component) SetSourceIP(ip string) bool { return c.set(keySourceIP, ip) }

// FlowControl returns the cached data port flow control flag.
func (c *Component) FlowControl() bool { return c.Bool(keyFlowControl) }

// SetFlowControl switches data port flow control.
func (c *Component) SetFlowControl(on bool) bool { return c.set(keyFlowControl, on) }

// Destination is one entry of a data port's destination table.
type Destination struct {
	IP         string `json:"ip"`
	MAC        string `json:"mac"`
	SourcePort int    `json:"sourcePort"`
	DestPort   int    `json:"destPort"`
}

// Destination returns the cached destination table entry at slot.
func (c *Component) Destination(slot int) (Destination, bool) {
	if !c.schema.Has(destKey(slot, "ip")) {
		return Destination{}, false
	}
	return Destination{
		IP:         c.Text(destKey(slot, "ip")),
		MAC:        c.Text(destKey(slot, "mac")),
		SourcePort: c.Int(destKey(slot, "sourcePort")),
		DestPort:   c.Int(destKey(slot, "destPort")),
	}, true
}

// SetDestination writes the destination table entry at slot as one command.
func (c *Component) SetDestination(slot int, d Destination) bool {
	if !c.schema.Has(destKey(slot, "ip")) {
		c.dev.setLastCommandError(errorText(fmt.Errorf("%w: %s has no destination %d", ErrUnsupportedField, c.Key(), slot)))
		return false
	}
	return c.SetConfiguration(Values{
		destKey(slot, "ip"):         d.IP,
		destKey(slot, "mac"):        d.MAC,
		destKey(slot, "sourcePort"): d.SourcePort,
		destKey(slot, "destPort"):   d.DestPort,
	})
}

// Members returns the cached group members in ascending order.
func (c *Component) Members() []int {
	var members []int
	for _, k := range c.schema.Keys() {
		n, ok := strings.CutPrefix(k, memberPrefix)
		if !ok {
			continue
		}
		m, err := strconv.Atoi(n)
		if err != nil || !c.Bool(k) {
			continue
		}
		members = append(members, m)
	}
	sort.Ints(members)
	return members
}

// AddMember adds member to the group.
func (c *Component) AddMember(member int) bool { return c.set(memberKey(member), true) }

// RemoveMember removes member from the group.
func (c *Component) RemoveMember(member int) bool { return c.set(memberKey(member), false) }

// HasMember reports whether member is cached as part of the group.
func (c *Component) HasMember(member int) bool { return c.Bool(memberKey(member)) }
