package models

import "strings"

// DroneStatus is the availability of a drone
type DroneStatus string

const (
	DroneStatusAvailable     DroneStatus = "Available"
	DroneStatusInMaintenance DroneStatus = "In Maintenance"
	DroneStatusRetired       DroneStatus = "Retired"
)

// Drone is an aircraft in the fleet
type Drone struct {
	ID              string      `json:"id"`
	Model           string      `json:"model" validate:"required"`
	Serial          string      `json:"serial" validate:"required"`
	Make            string      `json:"make" validate:"required"`
	PurchaseDate    string      `json:"purchaseDate" validate:"required,isodate"`
	Status          DroneStatus `json:"status" validate:"omitempty,oneof=Available 'In Maintenance' Retired"`
	LastMaintenance *string     `json:"lastMaintenance" validate:"omitempty,isodate"`
	NextServiceDate *string     `json:"nextServiceDate" validate:"omitempty,isodate"`
}

// ApplyDefaults trims input and fills defaulted fields
func (d *Drone) ApplyDefaults() {
	d.ID = strings.TrimSpace(d.ID)
	d.Model = strings.TrimSpace(d.Model)
	d.Serial = strings.TrimSpace(d.Serial)
	d.Make = strings.TrimSpace(d.Make)
	if d.Status == "" {
		d.Status = DroneStatusAvailable
	}
}
