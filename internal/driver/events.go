package driver

import "time"

// Stage describes a step of building one unit.
type Stage string

const (
	// StageHash reads the declaration file and computes its content hash.
	StageHash Stage = "hash"
	// StageLoad validates the declarations.
	StageLoad Stage = "load"
	// StageLower runs the class lowering phases.
	StageLower Stage = "lower"
	// StageEmit writes the IR module.
	StageEmit Stage = "emit"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the unit is waiting for its dependencies.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is being built.
	StatusWorking Status = "working"
	StatusCached  Status = "cached"
	StatusSkipped Status = "skipped"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a unit (or for the whole build when Unit is
// empty).
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Units built in parallel call
// OnEvent concurrently.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Final reports whether no further events follow for the unit.
func (s Status) Final() bool {
	switch s {
	case StatusCached, StatusSkipped, StatusDone, StatusError:
		return true
	}
	return false
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
