// Package queue defines message payloads exchanged over the message broker
// and the background consumer that archives them.
package queue

// WatchResolvedEvent is published after a watch resolves and its owner has
// been notified. It carries enough of the course snapshot for downstream
// consumers to log or analyze without querying the primary store.
type WatchResolvedEvent struct {
	Owner      string `json:"owner"`
	CourseID   string `json:"course_id"`
	Category   string `json:"category"`
	CourseName string `json:"course_name"`
	Capacity   int    `json:"capacity"`
	Occupied   int    `json:"occupied"`
	Available  int    `json:"available"`
	ClassInfo  string `json:"class_info"`
	ResolvedAt string `json:"resolved_at"`
}
