package models

import (
	"trajet.transportbi.org/internal/clock"
)

// ResponseModel is the envelope every JSON endpoint answers with.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Data        any    `json:"data,omitempty"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
}

type ReferencesModel struct {
	Agencies []TransportAgency `json:"agencies"`
	Cities   []City            `json:"cities"`
}

type EntryData struct {
	Entry      any             `json:"entry"`
	References ReferencesModel `json:"references"`
}

type ListData struct {
	List          any             `json:"list"`
	LimitExceeded bool            `json:"limitExceeded"`
	Partial       bool            `json:"partial,omitempty"`
	References    ReferencesModel `json:"references"`
}

const responseVersion = 2

func NewEmptyReferences() ReferencesModel {
	return ReferencesModel{
		Agencies: []TransportAgency{},
		Cities:   []City{},
	}
}

func ResponseCurrentTime(c clock.Clock) int64 {
	if c == nil {
		c = clock.RealClock{}
	}
	return c.NowUnixMilli()
}

func NewOKResponse(data any, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        200,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        "OK",
		Version:     responseVersion,
	}
}

func NewEntryResponse(entry any, references ReferencesModel, c clock.Clock) ResponseModel {
	return NewOKResponse(EntryData{Entry: entry, References: references}, c)
}

// NewListResponse wraps list. partial marks a list assembled from a subset
// of its sources after one of them failed.
func NewListResponse(list any, references ReferencesModel, partial bool, c clock.Clock) ResponseModel {
	return NewOKResponse(ListData{List: list, Partial: partial, References: references}, c)
}
