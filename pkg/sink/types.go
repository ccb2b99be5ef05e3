package sink

import "github.com/V4T54L/logsink/internal/domain"

// Re-exported domain types so callers never import internal packages.
type (
	LogEvent          = domain.LogEvent
	Level             = domain.Level
	LevelSwitch       = domain.LevelSwitch
	Batch             = domain.Batch
	Record            = domain.Record
	BatchWriter       = domain.BatchWriter
	SchemaProvisioner = domain.SchemaProvisioner
	EventSink         = domain.EventSink
)

const (
	LevelVerbose     = domain.LevelVerbose
	LevelDebug       = domain.LevelDebug
	LevelInformation = domain.LevelInformation
	LevelWarning     = domain.LevelWarning
	LevelError       = domain.LevelError
	LevelFatal       = domain.LevelFatal
)

var (
	ParseLevel     = domain.ParseLevel
	NewLevelSwitch = domain.NewLevelSwitch
	NewBatch       = domain.NewBatch
	RenderTemplate = domain.RenderTemplate
)
