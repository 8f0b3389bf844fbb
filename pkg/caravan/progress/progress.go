// Package progress defines the event model orchestrators use to report
// long-running work. Events are delivered synchronously on the goroutine
// doing the work; emitters that need decoupling buffer on their side.
package progress

// Stage identifies the phase of a long-running operation.
type Stage string

// Stages in the order a typical install passes through them.
const (
	StageResolving   Stage = "resolving"
	StageDownloading Stage = "downloading"
	StageExtracting  Stage = "extracting"
	StagePatchers    Stage = "patchers"
	StageRestoring   Stage = "restoring"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

// Event is a single progress report.
type Event struct {
	Stage   Stage
	Percent int
	Message string

	// Byte counters, set during downloads. HasTotal is false when the
	// server did not send a content length.
	Downloaded uint64
	Total      uint64
	HasTotal   bool

	// Entry counters, set during extraction.
	Current int
	Entries int
}

// Emitter receives progress events.
type Emitter interface {
	Emit(Event)
}

// Func adapts a plain function to the Emitter interface.
type Func func(Event)

// Emit calls f.
func (f Func) Emit(e Event) { f(e) }

// Nop returns an emitter that discards every event.
func Nop() Emitter {
	return Func(func(Event) {})
}
