package model

import "time"

// QueryRecord is an immutable fact recording one resolved query, whether it
// was answered directly or resolved later by the scheduler. Records are
// append-only and pruned by age; they are never updated in place.
type QueryRecord struct {
	Owner     string
	CourseID  string
	Category  string
	Name      string
	Capacity  int
	Occupied  int
	Available int
	QueriedAt time.Time
}

// FromCourseRecord builds a history record from a course snapshot.
func FromCourseRecord(owner string, rec CourseRecord, at time.Time) QueryRecord {
	return QueryRecord{
		Owner:     owner,
		CourseID:  rec.ID,
		Category:  rec.Category,
		Name:      rec.Name,
		Capacity:  rec.Capacity,
		Occupied:  rec.Occupied,
		Available: rec.Available,
		QueriedAt: at,
	}
}
