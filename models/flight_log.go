package models

import (
	"math"
	"strings"
)

// FlightLog records a single flight
type FlightLog struct {
	ID          string  `json:"id"`
	PilotID     string  `json:"pilotId" validate:"required"`
	DroneID     string  `json:"droneId" validate:"required"`
	Date        string  `json:"date" validate:"required,isodate"`
	Duration    float64 `json:"duration" validate:"gte=0"`
	Location    string  `json:"location" validate:"required"`
	MissionType string  `json:"missionType" validate:"required"`
	Weather     string  `json:"weather,omitempty"`
	Incidents   string  `json:"incidents"`
	Notes       string  `json:"notes"`
}

// ApplyDefaults trims input and fills defaulted fields
func (f *FlightLog) ApplyDefaults() {
	f.ID = strings.TrimSpace(f.ID)
	f.Location = strings.TrimSpace(f.Location)
	f.MissionType = strings.TrimSpace(f.MissionType)
	f.Weather = strings.TrimSpace(f.Weather)
	f.Incidents = strings.TrimSpace(f.Incidents)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Incidents == "" {
		f.Incidents = "None"
	}
}

// OwningPilotID implements the pilot ownership contract
func (f *FlightLog) OwningPilotID() string {
	return f.PilotID
}

// TotalFlightHours sums log durations (minutes) and returns hours rounded
// to one decimal place.
func TotalFlightHours(logs []FlightLog) float64 {
	var minutes float64
	for _, l := range logs {
		minutes += l.Duration
	}
	if minutes == 0 {
		return 0
	}
	return math.Round(minutes/60*10) / 10
}

// FlightHours is the aggregate returned by the flight-hours endpoints
type FlightHours struct {
	PilotID    string  `json:"pilotId,omitempty"`
	DroneID    string  `json:"droneId,omitempty"`
	TotalHours float64 `json:"totalHours"`
}

// DocumentID returns the store key
func (f *FlightLog) DocumentID() string {
	return f.ID
}

// SetDocumentID sets the store key
func (f *FlightLog) SetDocumentID(id string) {
	f.ID = id
}
