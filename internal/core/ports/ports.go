/*
 * file: ports.go
 * package: ports
 * description:
 * 			This file defines the interfaces that form the boundaries of the application's core logic (hexagon).
 * 			These ports allow the core services to be decoupled from specific infrastructure implementations.
 */

package ports

/*
 * Repository is the optional sink for (room_id, state) snapshots on every
 * sync (component H). Any data storage solution must implement this
 * interface to be used by the Room Manager. Save/Remove failures are
 * logged but never fail a dispatch: the authoritative state lives in
 * memory, persistence is best-effort.
 */
type Repository interface {
	Save(roomID string, gameID string, version uint64, state any) error
	Remove(roomID string) error
	Load(roomID string) (state any, version uint64, found bool, err error)
}
