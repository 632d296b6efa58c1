package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything touching
// listeners, providers, or the session store requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	PipelineChanged bool
	Pipeline        PipelineDiff
}

// PipelineDiff describes which hot-reloadable pipeline fields changed.
type PipelineDiff struct {
	PersonaChanged     bool
	VoiceChanged       bool
	TemperatureChanged bool
	MaxTokensChanged   bool
}

// Changed reports whether any pipeline field differs.
func (p PipelineDiff) Changed() bool {
	return p.PersonaChanged || p.VoiceChanged || p.TemperatureChanged || p.MaxTokensChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.Pipeline = PipelineDiff{
		PersonaChanged:     old.Pipeline.Persona != new.Pipeline.Persona,
		VoiceChanged:       old.Pipeline.VoiceID != new.Pipeline.VoiceID,
		TemperatureChanged: old.Pipeline.Temperature != new.Pipeline.Temperature,
		MaxTokensChanged:   old.Pipeline.MaxTokens != new.Pipeline.MaxTokens,
	}
	d.PipelineChanged = d.Pipeline.Changed()

	return d
}
