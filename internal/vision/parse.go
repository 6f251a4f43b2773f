package vision

import (
	"strings"
)

var preambles = []string{"Here", "I see", "Based on", "This is", "This photo", "The image"}

// ParseLine parses one "name | description" line. Lines without a pipe are
// treated as preamble and yield nil.
func ParseLine(line string) *Suggestion {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, "|") {
		return nil
	}
	for _, p := range preambles {
		if strings.HasPrefix(line, p) {
			return nil
		}
	}

	name, desc, _ := strings.Cut(line, "|")
	s := &Suggestion{
		Name: strings.Trim(strings.TrimSpace(name), `*"`),
		Desc: strings.TrimSpace(strings.ReplaceAll(desc, "|", " ")),
	}
	if s.Name == "" {
		return nil
	}
	return s
}

// ParseSuggestion returns the first suggestion line in a model response. When
// the model ignored the format, the first non-empty line becomes the name.
func ParseSuggestion(raw string) Suggestion {
	var fallback string
	for _, line := range strings.Split(raw, "\n") {
		if s := ParseLine(line); s != nil {
			s.RawResponse = raw
			return *s
		}
		if fallback == "" {
			fallback = strings.TrimSpace(line)
		}
	}
	return Suggestion{Name: strings.TrimRight(fallback, "."), RawResponse: raw}
}
