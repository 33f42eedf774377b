package session

import "github.com/inkboard/boardserver/models"

// Frame types broadcast or sent to subscribers, per spec §6.3.
//
// cursorFrame and userLeftFrame carry the originating user id under
// the wire field `oderId` — a typo preserved bit-exactly from the
// reference implementation for client compatibility (spec §9, Open
// Question i). `userId` is included alongside it as the corrected
// alias the spec permits exposing.

type initFrame struct {
	Type      string           `json:"type"`
	UserID    string           `json:"userId"`
	Elements  []models.Element `json:"elements"`
	UserCount int              `json:"userCount"`
}

type drawFrame struct {
	Type    string        `json:"type"`
	Element models.Element `json:"element"`
}

type moveFrame struct {
	Type      string        `json:"type"`
	ElementID string        `json:"elementId"`
	Element   models.Element `json:"element"`
}

type eraseFrame struct {
	Type      string `json:"type"`
	ElementID string `json:"elementId"`
}

type clearFrame struct {
	Type string `json:"type"`
}

type reorderFrame struct {
	Type      string `json:"type"`
	ElementID string `json:"elementId"`
	Position  string `json:"position"`
}

type cursorFrame struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	OderID string  `json:"oderId"`
	UserID string  `json:"userId"`
}

type userCountFrame struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type userLeftFrame struct {
	Type   string `json:"type"`
	OderID string `json:"oderId"`
	UserID string `json:"userId"`
}
