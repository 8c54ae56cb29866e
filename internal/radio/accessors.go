package radio

import "fmt"

// lookup returns the component at (cat, index) or records why it is missing.
func (h *Handler) lookup(cat Category, index int) *Component {
	c, ok := h.Component(cat, index)
	if !ok {
		h.lastCommandError = errorText(fmt.Errorf("%w: %s %d", ErrNoComponent, cat, index))
		return nil
	}
	return c
}

// withField is lookup that also requires the component to declare key.
func (h *Handler) withField(cat Category, index int, key string) *Component {
	c := h.lookup(cat, index)
	if c == nil {
		return nil
	}
	if !c.schema.Has(key) {
		h.lastCommandError = errorText(fmt.Errorf("%w: %s has no %s", ErrUnsupportedField, c.Key(), key))
		return nil
	}
	return c
}

func (h *Handler) getFloat(cat Category, index int, key string) (float64, bool) {
	c := h.withField(cat, index, key)
	if c == nil {
		return 0, false
	}
	return c.Float(key), true
}

func (h *Handler) getInt(cat Category, index int, key string) (int, bool) {
	c := h.withField(cat, index, key)
	if c == nil {
		return 0, false
	}
	return c.Int(key), true
}

func (h *Handler) getBool(cat Category, index int, key string) (bool, bool) {
	c := h.withField(cat, index, key)
	if c == nil {
		return false, false
	}
	return c.Bool(key), true
}

func (h *Handler) setValue(cat Category, index int, key string, v any) bool {
	c := h.lookup(cat, index)
	if c == nil {
		return false
	}
	return c.set(key, v)
}

// ComponentConfiguration returns a snapshot of the component at (cat, index).
func (h *Handler) ComponentConfiguration(cat Category, index int) (Values, bool) {
	c := h.lookup(cat, index)
	if c == nil {
		return nil, false
	}
	return c.Configuration(), true
}

// SetComponentConfiguration applies values to the component at (cat, index).
func (h *Handler) SetComponentConfiguration(cat Category, index int, values Values) bool {
	c := h.lookup(cat, index)
	if c == nil {
		return false
	}
	return c.SetConfiguration(values)
}

// QueryComponentConfiguration re-reads the component at (cat, index).
func (h *Handler) QueryComponentConfiguration(cat Category, index int) bool {
	c := h.lookup(cat, index)
	if c == nil {
		return false
	}
	return c.QueryConfiguration()
}

// Configuration returns the radio's top-level settings.
func (h *Handler) Configuration() Values { return h.settings.Configuration() }

// SetConfiguration applies top-level settings.
func (h *Handler) SetConfiguration(values Values) bool { return h.settings.SetConfiguration(values) }

// ReferenceMode returns the cached reference clock mode.
func (h *Handler) ReferenceMode() int { return h.settings.Int(keyReferenceMode) }

// SetReferenceMode selects the reference clock mode.
func (h *Handler) SetReferenceMode(mode int) bool { return h.settings.set(keyReferenceMode, mode) }

// TunerEnabled returns the cached power state of tuner index.
func (h *Handler) TunerEnabled(index int) (bool, bool) {
	return h.getBool(CategoryTuner, index, keyEnabled)
}

// EnableTuner powers tuner index on or off.
func (h *Handler) EnableTuner(index int, on bool) bool {
	return h.setValue(CategoryTuner, index, keyEnabled, on)
}

// TunerFrequency returns the cached frequency of tuner index in Hz.
func (h *Handler) TunerFrequency(index int) (float64, bool) {
	return h.getFloat(CategoryTuner, index, keyFrequency)
}

// SetTunerFrequency tunes tuner index to hz.
func (h *Handler) SetTunerFrequency(index int, hz float64) bool {
	return h.setValue(CategoryTuner, index, keyFrequency, hz)
}

// TunerAttenuation returns the cached attenuation of tuner index in dB.
func (h *Handler) TunerAttenuation(index int) (float64, bool) {
	return h.getFloat(CategoryTuner, index, keyAttenuation)
}

// SetTunerAttenuation sets the attenuation of tuner index in dB.
func (h *Handler) SetTunerAttenuation(index int, db float64) bool {
	return h.setValue(CategoryTuner, index, keyAttenuation, db)
}

// TunerFilter returns the cached IF filter of tuner index.
func (h *Handler) TunerFilter(index int) (int, bool) {
	return h.getInt(CategoryTuner, index, keyFilter)
}

// SetTunerFilter selects the IF filter of tuner index.
func (h *Handler) SetTunerFilter(index, filter int) bool {
	return h.setValue(CategoryTuner, index, keyFilter, filter)
}

// DDCEnabled returns the cached enable flag of down-converter index.
func (h *Handler) DDCEnabled(index int) (bool, bool) {
	return h.getBool(CategoryDDC, index, keyEnabled)
}

// EnableDDC switches down-converter index on or off.
func (h *Handler) EnableDDC(index int, on bool) bool {
	return h.setValue(CategoryDDC, index, keyEnabled, on)
}

// DDCRateIndex returns the cached decimation rate index of down-converter index.
func (h *Handler) DDCRateIndex(index int) (int, bool) {
	return h.getInt(CategoryDDC, index, keyRateIndex)
}

// SetDDCRateIndex sets the decimation rate index of down-converter index.
func (h *Handler) SetDDCRateIndex(index, rate int) bool {
	return h.setValue(CategoryDDC, index, keyRateIndex, rate)
}

// DDCFrequency returns the cached frequency offset of down-converter index in Hz.
func (h *Handler) DDCFrequency(index int) (float64, bool) {
	return h.getFloat(CategoryDDC, index, keyFrequency)
}

// SetDDCFrequency sets the frequency offset of down-converter index in Hz.
func (h *Handler) SetDDCFrequency(index int, hz float64) bool {
	return h.setValue(CategoryDDC, index, keyFrequency, hz)
}

// DDCUDPDestination returns the cached destination index of down-converter index.
func (h *Handler) DDCUDPDestination(index int) (int, bool) {
	return h.getInt(CategoryDDC, index, keyUDPDestination)
}

// SetDDCUDPDestination sets the destination index of down-converter index.
func (h *Handler) SetDDCUDPDestination(index, dest int) bool {
	return h.setValue(CategoryDDC, index, keyUDPDestination, dest)
}

// DDCStreamID returns the cached VITA stream id of down-converter index.
func (h *Handler) DDCStreamID(index int) (int, bool) {
	return h.getInt(CategoryDDC, index, keyStreamID)
}

// SetDDCStreamID sets the VITA stream id of down-converter index.
func (h *Handler) SetDDCStreamID(index, id int) bool {
	return h.setValue(CategoryDDC, index, keyStreamID, id)
}

// DUCEnabled returns the cached enable flag of up-converter index.
func (h *Handler) DUCEnabled(index int) (bool, bool) {
	return h.getBool(CategoryDUC, index, keyEnabled)
}

// EnableDUC switches up-converter index on or off.
func (h *Handler) EnableDUC(index int, on bool) bool {
	return h.setValue(CategoryDUC, index, keyEnabled, on)
}

// DUCFrequency returns the cached frequency offset of up-converter index in Hz.
func (h *Handler) DUCFrequency(index int) (float64, bool) {
	return h.getFloat(CategoryDUC, index, keyFrequency)
}

// SetDUCFrequency sets the frequency offset of up-converter index in Hz.
func (h *Handler) SetDUCFrequency(index int, hz float64) bool {
	return h.setValue(CategoryDUC, index, keyFrequency, hz)
}

// DUCAttenuation returns the cached attenuation of up-converter index in dB.
func (h *Handler) DUCAttenuation(index int) (float64, bool) {
	return h.getFloat(CategoryDUC, index, keyAttenuation)
}

// SetDUCAttenuation sets the attenuation of up-converter index in dB.
func (h *Handler) SetDUCAttenuation(index int, db float64) bool {
	return h.setValue(CategoryDUC, index, keyAttenuation, db)
}

// DUCRateIndex returns the cached interpolation rate index of up-converter index.
func (h *Handler) DUCRateIndex(index int) (int, bool) {
	return h.getInt(CategoryDUC, index, keyRateIndex)
}

// SetDUCRateIndex sets the interpolation rate index of up-converter index.
func (h *Handler) SetDUCRateIndex(index, rate int) bool {
	return h.setValue(CategoryDUC, index, keyRateIndex, rate)
}

// TransmitterEnabled returns the cached power state of transmitter index.
func (h *Handler) TransmitterEnabled(index int) (bool, bool) {
	return h.getBool(CategoryTransmitter, index, keyEnabled)
}

// EnableTransmitter powers transmitter index on or off.
func (h *Handler) EnableTransmitter(index int, on bool) bool {
	return h.setValue(CategoryTransmitter, index, keyEnabled, on)
}

// TransmitterFrequency returns the cached frequency of transmitter index in Hz.
func (h *Handler) TransmitterFrequency(index int) (float64, bool) {
	return h.getFloat(CategoryTransmitter, index, keyFrequency)
}

// SetTransmitterFrequency tunes transmitter index to hz.
func (h *Handler) SetTransmitterFrequency(index int, hz float64) bool {
	return h.setValue(CategoryTransmitter, index, keyFrequency, hz)
}

// TransmitterAttenuation returns the cached attenuation of transmitter index in dB.
func (h *Handler) TransmitterAttenuation(index int) (float64, bool) {
	return h.getFloat(CategoryTransmitter, index, keyAttenuation)
}

// SetTransmitterAttenuation sets the attenuation of transmitter index in dB.
func (h *Handler) SetTransmitterAttenuation(index int, db float64) bool {
	return h.setValue(CategoryTransmitter, index, keyAttenuation, db)
}

// DataPortSourceIP returns the cached source address of data port index.
func (h *Handler) DataPortSourceIP(index int) (string, bool) {
	c := h.lookup(CategoryDataPort, index)
	if c == nil {
		return "", false
	}
	return c.SourceIP(), true
}

// SetDataPortSourceIP sets the source address of data port index.
func (h *Handler) SetDataPortSourceIP(index int, ip string) bool {
	return h.setValue(CategoryDataPort, index, keySourceIP, ip)
}

// DataPortDestination returns destination slot of data port index.
func (h *Handler) DataPortDestination(index, slot int) (Destination, bool) {
	c := h.lookup(CategoryDataPort, index)
	if c == nil {
		return Destination{}, false
	}
	return c.Destination(slot)
}

// SetDataPortDestination writes destination slot of data port index.
func (h *Handler) SetDataPortDestination(index, slot int, d Destination) bool {
	c := h.lookup(CategoryDataPort, index)
	if c == nil {
		return false
	}
	return c.SetDestination(slot, d)
}

// GroupEnabled returns the cached enable flag of group index.
func (h *Handler) GroupEnabled(index int) (bool, bool) {
	return h.getBool(CategoryGroup, index, keyEnabled)
}

// EnableGroup switches group index on or off.
func (h *Handler) EnableGroup(index int, on bool) bool {
	return h.setValue(CategoryGroup, index, keyEnabled, on)
}

// GroupMembers returns the cached members of group index.
func (h *Handler) GroupMembers(index int) ([]int, bool) {
	c := h.lookup(CategoryGroup, index)
	if c == nil {
		return nil, false
	}
	return c.Members(), true
}

// AddGroupMember adds down-converter member to group index.
func (h *Handler) AddGroupMember(index, member int) bool {
	c := h.lookup(CategoryGroup, index)
	if c == nil {
		return false
	}
	return c.AddMember(member)
}

// RemoveGroupMember removes down-converter member from group index.
func (h *Handler) RemoveGroupMember(index, member int) bool {
	c := h.lookup(CategoryGroup, index)
	if c == nil {
		return false
	}
	return c.RemoveMember(member)
}
