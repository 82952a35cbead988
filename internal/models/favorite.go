package models

import "time"

// FavoriteEntry links a user to a document they bookmarked.
type FavoriteEntry struct {
	UserID     string    `db:"user_id" json:"userId"`
	DocumentID string    `db:"document_id" json:"documentId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// FavoriteState is returned after a toggle.
type FavoriteState struct {
	DocumentID string `json:"documentId"`
	Favorited  bool   `json:"favorited"`
	Favorites  int64  `json:"favorites"`
}

// FavoriteReconciliation reports a counter reset to the ledger's real count.
type FavoriteReconciliation struct {
	DocumentID string `json:"documentId"`
	Previous   int64  `json:"previous"`
	Current    int64  `json:"current"`
}
