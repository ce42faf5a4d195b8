package engine

import "fmt"

// Mode selects the retrieval strategy used by the engine.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeGlobal Mode = "global"
	ModeHybrid Mode = "hybrid"
	ModeNaive  Mode = "naive"
	ModeMix    Mode = "mix"
	ModeBypass Mode = "bypass"
)

const DefaultMode = ModeMix

var modes = []Mode{ModeLocal, ModeGlobal, ModeHybrid, ModeNaive, ModeMix, ModeBypass}

// Modes lists every supported mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}

func (m Mode) Valid() bool {
	for _, known := range modes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMode resolves an empty string to DefaultMode and rejects unknown values.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// UsesEntities reports whether the mode reads the entity graph.
func (m Mode) UsesEntities() bool {
	return m == ModeLocal || m == ModeHybrid || m == ModeMix
}

// UsesRelationships reports whether the mode reads relationship records.
func (m Mode) UsesRelationships() bool {
	return m == ModeGlobal || m == ModeHybrid || m == ModeMix
}

// UsesVectorChunks reports whether the mode searches text chunks directly.
func (m Mode) UsesVectorChunks() bool {
	return m == ModeNaive || m == ModeMix
}
