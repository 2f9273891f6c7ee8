/*
 * file: game.go
 * package: domain
 * description:
 *     Defines the core domain entities persisted by the durable
 *     repository. RoomSnapshot generalizes the original single-game
 *     `Game` row into a game-agnostic (room_id, game_id, version, state)
 *     blob, since the Room Manager now hosts any registered rules plugin,
 *     not just Tic-Tac-Toe.
 */

package domain

import (
	"time"

	"gorm.io/gorm"
)

// RoomSnapshot is the durable row for one room's most recent state
// replacement. Only the latest version per room is kept: the repository
// is a best-effort resume aid (component H), not a move-history audit
// log, so this table is upserted in place rather than appended to.
type RoomSnapshot struct {
	gorm.Model
	RoomID    string `gorm:"size:64;uniqueIndex;not null" json:"roomID"`
	GameID    string `gorm:"size:50;not null" json:"gameID"`
	Version   uint64 `gorm:"not null" json:"version"`
	StateJSON string `gorm:"type:text;not null" json:"stateJSON"`
	SavedAt   time.Time `json:"savedAt"`
}
