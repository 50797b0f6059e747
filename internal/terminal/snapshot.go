package terminal

import "fmt"

// Snapshot is the terminal appearance recorded at session start.
type Snapshot struct {
	// Known is false when output is not a terminal; nothing is restored then.
	Known bool
	// CursorVisible is assumed true on a terminal, since there is no
	// portable way to query visibility.
	CursorVisible bool
	// PositionKnown is set when the cursor position report succeeded.
	PositionKnown bool
	// Row and Col are 1-based.
	Row int
	Col int
}

func (s Snapshot) String() string {
	if !s.Known {
		return "unknown"
	}
	pos := "?"
	if s.PositionKnown {
		pos = fmt.Sprintf("%d,%d", s.Row, s.Col)
	}
	return fmt.Sprintf("visible=%t pos=%s", s.CursorVisible, pos)
}

// Modification is a reversible terminal change.
type Modification int

const (
	// HideCursor hides the cursor and shows it again on release.
	HideCursor Modification = iota
	// SaveCursor saves the cursor position and restores it on release.
	SaveCursor
	// RawMode puts the input terminal in raw mode and restores the
	// previous mode on release.
	RawMode
)

func (k Modification) String() string {
	switch k {
	case HideCursor:
		return "hide-cursor"
	case SaveCursor:
		return "save-cursor"
	case RawMode:
		return "raw-mode"
	default:
		return "unknown"
	}
}
