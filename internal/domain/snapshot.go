package domain

import "time"

const SnapshotVersion = 1

// Snapshot is the single persisted session document. The token is kept outside of it.
type Snapshot struct {
	Version   int        `json:"version"`
	Revision  uint64     `json:"revision"`
	SavedAt   time.Time  `json:"savedAt"`
	Products  []Product  `json:"products"`
	Cart      []CartLine `json:"cart"`
	Favorites []Product  `json:"favorites"`
	User      *User      `json:"user"`
}

func EmptySnapshot() *Snapshot {
	return &Snapshot{Version: SnapshotVersion}
}
