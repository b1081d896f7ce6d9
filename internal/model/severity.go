package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DTCSeverity is the single ordered severity scale for diagnostic codes.
// Numeric and categorical inputs both decode into it; it always encodes as the name.
type DTCSeverity int

const (
	SeverityInfo DTCSeverity = iota + 1
	SeverityWarning
	SeverityCritical
)

// MaxSeverity is the top of the scale; a DTC at this level makes a vehicle critical.
const MaxSeverity = SeverityCritical

var severityNames = map[DTCSeverity]string{
	SeverityInfo:     "INFO",
	SeverityWarning:  "WARNING",
	SeverityCritical: "CRITICAL",
}

func (s DTCSeverity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is on the scale
func (s DTCSeverity) Valid() bool {
	return s >= SeverityInfo && s <= SeverityCritical
}

// ParseSeverity accepts "CRITICAL"/"WARNING"/"INFO" (any case) or "1".."3".
func ParseSeverity(raw string) (DTCSeverity, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		s := DTCSeverity(n)
		if !s.Valid() {
			return 0, fmt.Errorf("severity %d out of range 1..3", n)
		}
		return s, nil
	}
	for s, name := range severityNames {
		if strings.EqualFold(raw, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", raw)
}

func (s DTCSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DTCSeverity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := ParseSeverity(str)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	parsed, err := ParseSeverity(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
