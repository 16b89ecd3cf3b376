package models

// ScheduleEntry is one persisted daily fire time of a tracking. Validation
// and ordering live in the schedule package; this is the storage shape.
type ScheduleEntry struct {
	EntryID    int64 `json:"entry_id"`
	TrackingID int64 `json:"tracking_id"`
	Hour       int   `json:"hour"`
	Minute     int   `json:"minute"`
}
