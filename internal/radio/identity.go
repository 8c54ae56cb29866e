package radio

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version info keys.
const (
	InfoModel           = "model"
	InfoSerialNumber    = "serialNumber"
	InfoSoftwareVersion = "softwareVersion"
	InfoFirmwareVersion = "firmwareVersion"
	InfoFPGAVersion     = "fpgaVersion"
	InfoUnitRevision    = "unitRevision"
)

var cliIdentity = []IdentityQuery{
	{Command: "*IDN?", Parse: parseIDN},
	{Command: "VER?", Parse: parseKeyValues},
	{Command: "HREV?", Parse: parseKeyValues},
}

var jsonIdentity = []IdentityQuery{
	{Command: `{"cmd":"qstatus","params":{}}`, Parse: parseJSONStatus},
}

// parseIDN reads "<model> <description>" and "S/N <serial>" lines.
func parseIDN(lines []string, info map[string]string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || line == "OK":
		case strings.HasPrefix(line, "S/N"):
			info[InfoSerialNumber] = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "S/N"), ":"))
		case info[InfoModel] == "":
			info[InfoModel] = strings.Fields(line)[0]
		}
	}
}

// versionKeys maps reported labels onto version info keys.
var versionKeys = map[string]string{
	"sw":            InfoSoftwareVersion,
	"software":      InfoSoftwareVersion,
	"fw":            InfoFirmwareVersion,
	"firmware":      InfoFirmwareVersion,
	"fpga":          InfoFPGAVersion,
	"unit revision": InfoUnitRevision,
	"rev":           InfoUnitRevision,
	"model":         InfoModel,
	"serial":        InfoSerialNumber,
	"s/n":           InfoSerialNumber,
	"sn":            InfoSerialNumber,
}

// parseKeyValues reads "Label: value" lines. Unknown labels are kept
// lower-cased.
func parseKeyValues(lines []string, info map[string]string) {
	for _, line := range lines {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		if label == "" {
			continue
		}
		if key, ok := versionKeys[label]; ok {
			if info[key] == "" || key != InfoModel {
				info[key] = value
			}
			continue
		}
		info[label] = value
	}
}

// parseJSONStatus reads the result object of a status reply.
func parseJSONStatus(lines []string, info map[string]string) {
	var r struct {
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal([]byte(strings.Join(lines, "\n")), &r); err != nil {
		return
	}
	for label, v := range r.Result {
		value := fmt.Sprint(v)
		if key, ok := versionKeys[strings.ToLower(label)]; ok {
			info[key] = value
			continue
		}
		info[label] = value
	}
}
