package model

import "fmt"

// Mode selects which cardinality ceiling and requirement set applies.
type Mode int

const (
	ModeDefault Mode = iota
	ModeHA
)

// Modes in evaluation order.
var Modes = []Mode{ModeDefault, ModeHA}

func (m Mode) String() string {
	switch m {
	case ModeHA:
		return "ha"
	default:
		return "default"
	}
}

// ParseMode accepts "default", "ha" and the empty string (default).
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "default":
		return ModeDefault, nil
	case "ha":
		return ModeHA, nil
	}
	return ModeDefault, fmt.Errorf("unknown mode %q", s)
}

// ModeOf maps the ha flag used by drivers to a Mode.
func ModeOf(ha bool) Mode {
	if ha {
		return ModeHA
	}
	return ModeDefault
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
