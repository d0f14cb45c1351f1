package textproc

import "strings"

// Section names produced by Segment.
const (
	SectionDiagnosis = "diagnosis"
	SectionFindings  = "findings"
	SectionLabs      = "labs"
	SectionNotes     = "notes"
)

// sectionHeaders is checked in priority order; the first keyword hit wins
// for lines that mention several section names.
var sectionHeaders = []struct {
	section  string
	keywords []string
}{
	{SectionDiagnosis, []string{"diagnosis", "impression"}},
	{SectionFindings, []string{"findings", "results"}},
	{SectionLabs, []string{"laboratory", "lab", "test"}},
	{SectionNotes, []string{"notes", "comments", "recommendation"}},
}

// Segment splits cleaned report text into named sections. Header lines
// switch the current section; any remainder after the header's colon is
// kept as section content while the header label itself is dropped.
// Content before any header lands in findings. Sections with no content
// are absent from the map.
func Segment(text string) map[string]string {
	accum := map[string][]string{}
	current := ""

	for _, line := range strings.Split(text, "\n") {
		if section, rest, ok := matchHeader(line); ok {
			current = section
			if rest != "" {
				accum[current] = append(accum[current], rest)
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		target := current
		if target == "" {
			target = SectionFindings
		}
		accum[target] = append(accum[target], line)
	}

	sections := make(map[string]string, len(accum))
	for name, lines := range accum {
		sections[name] = strings.Join(lines, "\n")
	}
	return sections
}

func matchHeader(line string) (section, rest string, ok bool) {
	lower := strings.ToLower(line)
	for _, header := range sectionHeaders {
		for _, kw := range header.keywords {
			if strings.Contains(lower, kw) {
				if _, after, found := strings.Cut(line, ":"); found {
					rest = strings.TrimSpace(after)
				}
				return header.section, rest, true
			}
		}
	}
	return "", "", false
}
