package types

// StatusChangeEvent is emitted by the status tracker only on an actual
// up/down transition. It is the sole trigger for incident handling and
// notifications.
type StatusChangeEvent struct {
	MonitorID   uint
	MonitorName string
	MonitorType string
	OrgID       uint
	Region      string
	From        MonitorState
	To          MonitorState
	Result      ProbeResult
	Reason      string // probe/validation failure summary, empty on recovery
}

// Trigger maps the transition direction onto the notification trigger event.
func (e StatusChangeEvent) Trigger() TriggerEvent {
	if e.To == StateDown {
		return TriggerDown
	}
	return TriggerRecovery
}
