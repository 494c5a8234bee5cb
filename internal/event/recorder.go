package event

// Logger is the minimal logging interface the recorder depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives a copy of every recorded event. Implementations must be
// fast and must not return errors to the control path; anything slow or
// fallible buffers internally.
type Sink interface {
	Record(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Record calls f(e).
func (f SinkFunc) Record(e Event) { f(e) }

// Recorder fans events out to the structured log and registered sinks.
// It is safe for concurrent use once constructed; sinks are registered
// during wiring, before the control loop starts.
type Recorder struct {
	logger Logger
	sinks  []Sink
}

// NewRecorder creates a Recorder logging through the given logger.
func NewRecorder(logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{logger: logger}
}

// AddSink registers an additional destination for recorded events.
func (r *Recorder) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Record logs the event at its severity and forwards it to every sink.
func (r *Recorder) Record(e Event) {
	args := []any{
		"event_id", e.ID,
		"component", string(e.Component),
		"entity", e.Entity,
	}
	for k, v := range e.Fields {
		args = append(args, k, v)
	}

	switch e.Level {
	case LevelWarning:
		r.logger.Warn(e.Message, args...)
	case LevelError, LevelCritical:
		r.logger.Error(e.Message, args...)
	default:
		r.logger.Info(e.Message, args...)
	}

	for _, s := range r.sinks {
		s.Record(e)
	}
}
