package models

import "strings"

// MissionStatus is the lifecycle state of a mission
type MissionStatus string

const (
	MissionStatusScheduled MissionStatus = "Scheduled"
	MissionStatusConfirmed MissionStatus = "Confirmed"
	MissionStatusCompleted MissionStatus = "Completed"
	MissionStatusCancelled MissionStatus = "Cancelled"
)

// Mission is a scheduled client job assigned to a pilot and drone
type Mission struct {
	ID       string        `json:"id"`
	Name     string        `json:"name" validate:"required"`
	Client   string        `json:"client" validate:"required"`
	Location string        `json:"location" validate:"required"`
	PilotID  string        `json:"pilotId" validate:"required"`
	DroneID  string        `json:"droneId" validate:"required"`
	Date     string        `json:"date" validate:"required,isodate"`
	Status   MissionStatus `json:"status" validate:"omitempty,oneof=Scheduled Confirmed Completed Cancelled"`
}

// ApplyDefaults trims input and fills defaulted fields
func (m *Mission) ApplyDefaults() {
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	m.Client = strings.TrimSpace(m.Client)
	m.Location = strings.TrimSpace(m.Location)
	if m.Status == "" {
		m.Status = MissionStatusScheduled
	}
}

// OwningPilotID implements the pilot ownership contract
func (m *Mission) OwningPilotID() string {
	return m.PilotID
}

// DocumentID returns the store key
func (m *Mission) DocumentID() string {
	return m.ID
}

// SetDocumentID sets the store key
func (m *Mission) SetDocumentID(id string) {
	m.ID = id
}
