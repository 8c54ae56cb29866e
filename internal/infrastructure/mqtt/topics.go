package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is the root of every sdrlink topic.
const DefaultTopicPrefix = "sdrlink"

// Topics builds the sdrlink topic hierarchy under a prefix:
//
//	{prefix}/state/{radio}/{category}/{index}    retained component configuration
//	{prefix}/command/{radio}/{category}/{index}  configuration changes to apply
//	{prefix}/status/{radio}                      retained connection state
//	{prefix}/system/status                       online/offline, LWT
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for prefix, or the default prefix if empty.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// State returns the topic carrying one component's configuration.
//
// Example: sdrlink/state/rx1/tuner/1
func (t Topics) State(radio, category string, index int) string {
	return fmt.Sprintf("%s/state/%s/%s/%d", t.Prefix, radio, category, index)
}

// Command returns the topic on which changes for one component arrive.
//
// Example: sdrlink/command/rx1/ddc/3
func (t Topics) Command(radio, category string, index int) string {
	return fmt.Sprintf("%s/command/%s/%s/%d", t.Prefix, radio, category, index)
}

// AllCommands matches every component command topic.
func (t Topics) AllCommands() string {
	return t.Prefix + "/command/+/+/+"
}

// RadioStatus returns a radio's connection status topic.
func (t Topics) RadioStatus(radio string) string {
	return fmt.Sprintf("%s/status/%s", t.Prefix, radio)
}

// SystemStatus returns the daemon status topic, also used for the LWT.
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}

// ParseCommand splits a command topic into radio, category and index.
func (t Topics) ParseCommand(topic string) (radio, category string, index int, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/command/")
	if !found {
		return "", "", 0, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, false
	}
	return parts[0], parts[1], index, true
}
