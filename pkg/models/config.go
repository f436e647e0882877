package models

// RecordingFormat names the on-disk encoding of a recording.
type RecordingFormat string

const (
	FormatLegacyCompressed RecordingFormat = "java/serialization/gzip"
	FormatLegacyPlain      RecordingFormat = "java/serialization"
	FormatJSONLCompressed  RecordingFormat = "jsonl/gzip"
	FormatJSONL            RecordingFormat = "jsonl"
)

// Compressed reports whether the format wraps the record stream in gzip and
// whether the format is known at all.
func (f RecordingFormat) Compressed() (compressed bool, known bool) {
	switch f {
	case FormatLegacyCompressed, FormatJSONLCompressed:
		return true, true
	case FormatLegacyPlain, FormatJSONL:
		return false, true
	default:
		return true, false
	}
}

// DiagnosisConfig is read once before the facade is built and never changes
// afterwards.
type DiagnosisConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	RecordingFile string `json:"recording_file" yaml:"recording_file"`
	Compress      bool   `json:"compress" yaml:"compress"`
	StackTraces   bool   `json:"stack_traces" yaml:"stack_traces"`
	StackDepth    int    `json:"stack_depth" yaml:"stack_depth"`
}

// DefaultDiagnosisConfig returns the configuration used when no key is set.
func DefaultDiagnosisConfig() DiagnosisConfig {
	return DiagnosisConfig{
		Enabled:       false,
		RecordingFile: "diagnosis.record",
		Compress:      true,
		StackTraces:   false,
		StackDepth:    1,
	}
}
