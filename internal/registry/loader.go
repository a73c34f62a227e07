package registry

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/jukebox/internal/message"
)

// Sources lists where player definitions are read from. Empty fields are
// skipped. Sources are merged in field order, so inline devices override the
// device file, which overrides the Castbridge preferences.
type Sources struct {
	// CastbridgeXML is the LMS Castbridge plugin preference file
	// (e.g. /var/lib/squeezeboxserver/prefs/castbridge.xml).
	CastbridgeXML string

	// DevicesFile is a YAML file with a top-level "devices" list of name/id pairs.
	DevicesFile string

	// Inline lists players directly from configuration.
	Inline []message.Device
}

// Load reads every configured source and builds a Registry.
func Load(src Sources, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var devices []message.Device

	if src.CastbridgeXML != "" {
		d, err := LoadCastbridge(src.CastbridgeXML)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded castbridge players", "path", src.CastbridgeXML, "players", len(d))
		devices = append(devices, d...)
	}

	if src.DevicesFile != "" {
		d, err := LoadYAML(src.DevicesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded device list", "path", src.DevicesFile, "players", len(d))
		devices = append(devices, d...)
	}

	devices = append(devices, src.Inline...)

	return New(devices...), nil
}

type castbridgePrefs struct {
	Devices []struct {
		Name string `xml:"name"`
		MAC  string `xml:"mac"`
	} `xml:"device"`
}

// LoadCastbridge reads the <device><name/><mac/></device> entries of the
// Castbridge plugin preference file.
func LoadCastbridge(path string) ([]message.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading castbridge prefs: %w", err)
	}
	var prefs castbridgePrefs
	if err := xml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parsing castbridge prefs: %w", err)
	}
	devices := make([]message.Device, 0, len(prefs.Devices))
	for _, d := range prefs.Devices {
		devices = append(devices, message.Device{Name: d.Name, ID: d.MAC})
	}
	return devices, nil
}

type deviceFile struct {
	Devices []message.Device `yaml:"devices"`
}

// LoadYAML reads a device list of the form:
//
//	devices:
//	  - name: kitchen
//	    id: "cc:cc:5c:56:cb:58"
func LoadYAML(path string) ([]message.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device list: %w", err)
	}
	var f deviceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing device list: %w", err)
	}
	return f.Devices, nil
}
