// Package models defines the registry server's persistence types.
package models

import "time"

// Station is an erasure workstation registered with the registry. Stations
// authenticate with a shared secret; only its argon2id hash is stored.
type Station struct {
	ID         string
	Name       string
	SecretHash []byte
	Salt       []byte
	CreatedAt  time.Time
}
