package leaderboard

import (
	"time"

	"github.com/google/uuid"
)

// Podium marks the top three display positions
type Podium string

const (
	PodiumNone   Podium = ""
	PodiumGold   Podium = "gold"
	PodiumSilver Podium = "silver"
	PodiumBronze Podium = "bronze"
)

// PodiumForPosition returns the podium tier of a 1-based display position
func PodiumForPosition(position int) Podium {
	switch position {
	case 1:
		return PodiumGold
	case 2:
		return PodiumSilver
	case 3:
		return PodiumBronze
	default:
		return PodiumNone
	}
}

// Row is an entry as presented to one viewer
type Row struct {
	Entry
	// Position is the 1-based index in the board, which may differ from
	// Rank when the backend leaves gaps or ties in its ranking.
	Position int    `json:"position"`
	Podium   Podium `json:"podium,omitempty"`
	IsViewer bool   `json:"is_viewer"`
}

// Board is the leaderboard as seen by a single authenticated seller
type Board struct {
	ViewerID    uuid.UUID `json:"viewer_id"`
	Rows        []Row     `json:"rows"`
	Viewer      *Row      `json:"viewer,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildBoard arranges entries for the viewer.
// Entries keep the order they were given in; the board never re-sorts.
func BuildBoard(entries []Entry, viewerID uuid.UUID, now time.Time) *Board {
	board := &Board{
		ViewerID:    viewerID,
		Rows:        make([]Row, len(entries)),
		GeneratedAt: now,
	}

	for i, e := range entries {
		position := i + 1
		board.Rows[i] = Row{
			Entry:    e,
			Position: position,
			Podium:   PodiumForPosition(position),
			IsViewer: e.BelongsTo(viewerID),
		}
	}

	for i := range board.Rows {
		if board.Rows[i].IsViewer {
			board.Viewer = &board.Rows[i]
			break
		}
	}

	return board
}

// Len returns the number of rows on the board
func (b *Board) Len() int {
	return len(b.Rows)
}

// HasViewer reports whether the viewer appears on the board
func (b *Board) HasViewer() bool {
	return b.Viewer != nil
}
