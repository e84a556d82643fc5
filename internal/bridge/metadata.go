package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata is the line-oriented key=value record accompanying a response
// payload. sample_rate is mandatory.
type Metadata struct {
	SampleRate int
	Voice      string
}

// Encode renders the metadata record.
func (m Metadata) Encode() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "sample_rate=%d\n", m.SampleRate)
	if m.Voice != "" {
		fmt.Fprintf(&b, "voice=%s\n", m.Voice)
	}
	return []byte(b.String())
}

// ParseMetadata parses a key=value metadata record. Unknown keys are
// ignored; a missing or malformed sample_rate is an error.
func ParseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	seenRate := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Metadata{}, fmt.Errorf("metadata line %q: missing '='", line)
		}
		switch key {
		case "sample_rate":
			rate, err := strconv.Atoi(value)
			if err != nil {
				return Metadata{}, fmt.Errorf("metadata sample_rate %q: %w", value, err)
			}
			m.SampleRate = rate
			seenRate = true
		case "voice":
			m.Voice = value
		}
	}
	if !seenRate {
		return Metadata{}, fmt.Errorf("metadata: missing sample_rate")
	}
	return m, nil
}
