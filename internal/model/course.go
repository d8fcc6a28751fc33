package model

// CourseRecord is an immutable snapshot of one course row as parsed out of
// the upstream listing page. A new record is produced on every fetch; nothing
// in the system mutates one after creation.
type CourseRecord struct {
	ID        string // 4-digit selection number, e.g. "7002"
	Code      string // subject code assigned by the registrar
	Name      string // course name, HTML entities stripped
	Category  string // listing category the record was found under
	Credits   string // credit count as printed by the upstream page
	Capacity  int    // maximum enrollment
	Occupied  int    // current enrollment
	Available int    // max(0, Capacity-Occupied), computed at parse time
	ClassInfo string // offering class/section description
}
