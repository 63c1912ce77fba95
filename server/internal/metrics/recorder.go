package metrics

import "time"

// Op labels a board mutation.
type Op string

const (
	OpRegisterCar Op = "register_car"
	OpRemoveCar   Op = "remove_car"
	OpRecordTime  Op = "record_time"
	OpDeleteTime  Op = "delete_time"
)

// Result labels the outcome of a mutation.
type Result string

const (
	ResultOK           Result = "ok"
	ResultInvalidInput Result = "invalid_input"
	ResultNotFound     Result = "not_found"
	ResultOutOfRange   Result = "out_of_range"
)

// Recorder receives metric events from the board, the persistence manager
// and the WebSocket hub.
type Recorder interface {
	IncMutation(op Op, result Result)
	IncSave(success bool)
	ObserveSaveDuration(d time.Duration)
	IncBroadcast()
	SetObservers(n int)
	IncObserverDropped()
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) IncMutation(Op, Result) {}
func (NoopRecorder) IncSave(bool) {}
func (NoopRecorder) ObserveSaveDuration(time.Duration) {}
func (NoopRecorder) IncBroadcast() {}
func (NoopRecorder) SetObservers(int) {}
func (NoopRecorder) IncObserverDropped() {}

var _ Recorder = NoopRecorder{}
