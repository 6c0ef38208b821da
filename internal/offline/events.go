package offline

// Event names broadcast to the sync event sink
const (
	EventConnectivity   = "connectivity_changed"
	EventQueued         = "action_queued"
	EventReplayStarted  = "replay_started"
	EventReplayFinished = "replay_finished"
	EventDeadLetter     = "action_dead_lettered"
)

// EventSink receives sync lifecycle notifications. The HTTP layer plugs the
// websocket hub in here; tests and library users can leave it nil.
type EventSink interface {
	Publish(event string, data map[string]interface{})
}

type nopSink struct{}

func (nopSink) Publish(string, map[string]interface{}) {}
