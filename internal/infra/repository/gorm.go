/*
 * file: gorm.go
 * package: repository
 * description:
 *     GORM/Postgres implementation of ports.Repository (component H),
 *     generalized from the teacher's single Game row into an upserted
 *     (room_id, game_id, version, state) snapshot, adapted from
 *     GormGameRepository's Create/Update/GetByRoomID trio.
 */
package repository

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/juan10024/tictactoe-test/internal/core/domain"
)

// GormRepository persists one snapshot row per room, upserted on every
// Save.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository constructs a GormRepository bound to an already
// migrated *gorm.DB (see internal/adapters/db).
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Save upserts the snapshot row for roomID.
func (r *GormRepository) Save(roomID string, gameID string, version uint64, state any) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}

	row := domain.RoomSnapshot{
		RoomID:    roomID,
		GameID:    gameID,
		Version:   version,
		StateJSON: string(blob),
		SavedAt:   time.Now(),
	}

	return r.db.Where(domain.RoomSnapshot{RoomID: roomID}).
		Assign(row).
		FirstOrCreate(&domain.RoomSnapshot{}).Error
}

// Remove deletes the snapshot row for roomID, if any.
func (r *GormRepository) Remove(roomID string) error {
	return r.db.Where("room_id = ?", roomID).Delete(&domain.RoomSnapshot{}).Error
}

// Load retrieves the last-saved snapshot for roomID. The caller is
// responsible for unmarshaling the raw JSON into its own GameState type,
// since the repository has no knowledge of which plugin produced it; the
// returned state here is the raw JSON string for that reason.
func (r *GormRepository) Load(roomID string) (state any, version uint64, found bool, err error) {
	var row domain.RoomSnapshot
	dbErr := r.db.Where("room_id = ?", roomID).First(&row).Error
	if dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return nil, 0, false, nil
		}
		return nil, 0, false, dbErr
	}
	return row.StateJSON, row.Version, true, nil
}
