package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexibleID accepts both JSON strings and numbers. Recommendation ids are
// strings ("rec_...") while persisted outfit ids are numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}

// Uint returns the numeric value when the id is a positive integer.
func (f FlexibleID) Uint() (uint, bool) {
	n, err := strconv.ParseUint(string(f), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

const (
	RefKindCandidate = "candidate"
	RefKindPersisted = "persisted"
)

type SaveOutfitIn struct {
	ID          FlexibleID     `json:"id" validate:"required"`
	Kind        string         `json:"kind" validate:"omitempty,oneof=candidate persisted"`
	Name        string         `json:"name" validate:"required,max=100"`
	Description *string        `json:"description" validate:"omitempty,max=500"`
	Items       []ItemSnapshot `json:"items"`
	Occasion    *string        `json:"occasion" validate:"omitempty,max=50"`
	Season      *string        `json:"season" validate:"omitempty,max=50"`
	Weather     *string        `json:"weather" validate:"omitempty,max=50"`
	Rating      *int           `json:"rating" validate:"omitempty,min=1,max=5"`
}

type RemoveSavedOutfitIn struct {
	ID FlexibleID `json:"id"`
}

type ChatMessageIn struct {
	Message string `json:"message"`
}

type ChatMessageOut struct {
	Message string `json:"message"`
}
