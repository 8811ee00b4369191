// Package store holds the persisted cart snapshot shared by the store
// backends. The snapshot is the whole CartState serialized as one JSON blob.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/VishalVrk/rfid-cart/internal/domain"
)

// Encode serializes the whole cart state.
func Encode(state domain.CartState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal cart state: %w", err)
	}
	return data, nil
}

// Decode restores a cart state. The feed-synced flag is always cleared since
// feed truth has not been re-established for the new session.
func Decode(data []byte) (domain.CartState, error) {
	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CartState{}, fmt.Errorf("unmarshal cart state: %w", err)
	}
	if state.Items == nil {
		state.Items = []domain.CartItem{}
	}
	state.FeedSynced = false
	return state, nil
}
