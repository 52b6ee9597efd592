package config

// DefaultBusName is the well-known name of the speech service family parlo
// fronts; the object path and interface are derived from the same name.
const (
	DefaultBusName    = "org.gnome.Speech2Text"
	DefaultObjectPath = "/org/gnome/Speech2Text"
	DefaultInterface  = "org.gnome.Speech2Text"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Recording: RecordingConfig{
			MaxDurationSeconds: 60,
			PostAction:         PostActionPreview,
		},
		Display: DisplayConfig{Mode: DisplayNormal},
		Service: ServiceConfig{
			BusName:                  DefaultBusName,
			ObjectPath:               DefaultObjectPath,
			Interface:                DefaultInterface,
			AutoLaunch:               true,
			LivenessIntervalSeconds:  30,
			ProcessingTimeoutSeconds: 0,
		},
		History: HistoryConfig{
			Enable:     true,
			MaxEntries: 500,
		},
		Clipboard: CommandConfig{},
	}
}
