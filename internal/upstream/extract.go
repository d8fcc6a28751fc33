package upstream

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/example/course-watcher/internal/model"
)

// The listing page has shipped in several near-identical table formats over
// the years. Extraction runs an ordered list of strategies and the first one
// that yields a row for the requested course wins. Strategies must never
// panic on malformed input; numeric fields that fail to parse coerce to 0 so
// one bad cell does not sink the whole row.

type extractStrategy struct {
	name string
	fn   func(content, courseID string) (model.CourseRecord, bool)
}

var strategies = []extractStrategy{
	{"table-row", extractTableRow},
	{"loose-row", extractLooseRow},
	{"digit-run", extractDigitRun},
}

// rowPattern matches the canonical listing row: selection number, subject
// code link, padded course-name link, then credits / capacity / occupied /
// class cells.
var rowPattern = regexp.MustCompile(
	`<TD align=center>(\d{4})<TD><a[^>]+>([^<]+)</a><TD><A[^>]+>([^<]+)&nbsp;&nbsp;&nbsp;&nbsp;</a><TD align=center>(\d+)<TD align=center>(\d+)<TD align=center>(\d+)<TD align=center>([^<]+)`)

// looseRowPattern tolerates an unpadded (possibly empty) course-name cell.
var looseRowPattern = regexp.MustCompile(
	`<TD align=center>(\d{4})<TD><a[^>]+>([^<]+)</a><TD><A[^>]+>([^<]*)</a><TD align=center>(\d+)<TD align=center>(\d+)<TD align=center>(\d+)<TD align=center>([^<]+)`)

var (
	entityWhitespace = regexp.MustCompile(`\s+`)
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	digitRunPattern  = regexp.MustCompile(`\d+`)
)

// Extract scans rawContent for the row describing courseID. It returns
// ErrNotFound when the page is well-formed but the course is absent, which
// callers treat as "still full" rather than a failure.
func Extract(content, courseID string) (model.CourseRecord, error) {
	if content == "" || !strings.Contains(content, courseID) {
		return model.CourseRecord{}, ErrNotFound
	}
	for _, s := range strategies {
		if rec, ok := s.fn(content, courseID); ok {
			return rec, nil
		}
	}
	return model.CourseRecord{}, ErrNotFound
}

func extractTableRow(content, courseID string) (model.CourseRecord, bool) {
	return matchRow(rowPattern, content, courseID)
}

func extractLooseRow(content, courseID string) (model.CourseRecord, bool) {
	return matchRow(looseRowPattern, content, courseID)
}

func matchRow(re *regexp.Regexp, content, courseID string) (model.CourseRecord, bool) {
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if m[1] != courseID {
			continue
		}
		capacity := parseCount(m[5])
		occupied := parseCount(m[6])
		return model.CourseRecord{
			ID:        m[1],
			Code:      m[2],
			Name:      cleanCourseName(m[3]),
			Credits:   m[4],
			Capacity:  capacity,
			Occupied:  occupied,
			Available: available(capacity, occupied),
			ClassInfo: strings.TrimSpace(m[7]),
		}, true
	}
	return model.CourseRecord{}, false
}

// extractDigitRun is the last-resort strategy: strip the row containing the
// course id down to text, collect the digit runs that follow the id and
// slice credits/capacity/occupied out of the concatenated digit string by
// position. The boundary rules are inferred from observed row lengths, not
// documented by the upstream.
// TODO: confirm the digit boundaries against a registrar-provided format
// description; rows with 3-digit capacities are currently guessed.
func extractDigitRun(content, courseID string) (model.CourseRecord, bool) {
	row, ok := rowAround(content, courseID)
	if !ok {
		return model.CourseRecord{}, false
	}
	text := tagPattern.ReplaceAllString(row, " ")
	text = cleanCourseName(text)

	idx := strings.Index(text, courseID)
	if idx < 0 {
		return model.CourseRecord{}, false
	}
	tail := text[idx+len(courseID):]

	runs := digitRunPattern.FindAllString(tail, -1)
	if len(runs) == 0 {
		return model.CourseRecord{}, false
	}
	digits := strings.Join(runs, "")
	if len(digits) < 3 {
		return model.CourseRecord{}, false
	}

	// First digit is credits; the remainder splits into capacity and
	// occupied, capacity taking the extra digit when the count is odd.
	credits := digits[:1]
	rest := digits[1:]
	split := (len(rest) + 1) / 2
	capacity := parseCount(rest[:split])
	occupied := parseCount(rest[split:])

	name := tail
	if loc := digitRunPattern.FindStringIndex(tail); loc != nil {
		name = tail[:loc[0]]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "未知課程"
	}

	return model.CourseRecord{
		ID:        courseID,
		Name:      name,
		Credits:   credits,
		Capacity:  capacity,
		Occupied:  occupied,
		Available: available(capacity, occupied),
		ClassInfo: "未知",
	}, true
}

// rowAround cuts the table row (or line) containing the course id out of the
// page so the digit-run heuristic does not wander into neighbouring rows.
func rowAround(content, courseID string) (string, bool) {
	idx := strings.Index(content, courseID)
	if idx < 0 {
		return "", false
	}
	start := strings.LastIndex(content[:idx], "<TR")
	if start < 0 {
		start = strings.LastIndexByte(content[:idx], '\n') + 1
	}
	rest := content[idx:]
	end := strings.Index(rest, "</TR")
	if end < 0 {
		end = strings.IndexByte(rest, '\n')
	}
	if end < 0 {
		end = len(rest)
	}
	return content[start : idx+end], true
}

// cleanCourseName strips the HTML entities the listing pads names with and
// collapses runs of whitespace.
func cleanCourseName(raw string) string {
	if raw == "" {
		return "未知課程"
	}
	r := strings.NewReplacer(
		"&nbsp;", "",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
	cleaned := r.Replace(raw)
	return strings.TrimSpace(entityWhitespace.ReplaceAllString(cleaned, " "))
}

// parseCount parses a numeric cell, coercing anything unparseable to 0.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// available clamps capacity-occupied at zero; the upstream sometimes reports
// occupancy above capacity.
func available(capacity, occupied int) int {
	if a := capacity - occupied; a > 0 {
		return a
	}
	return 0
}
