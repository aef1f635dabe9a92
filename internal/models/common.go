// internal/models/common.go
package models

import "fmt"

// RegistrationType distinguishes a first registration from one created by
// renewing an earlier cycle of the same trap.
type RegistrationType string

const (
	RegistrationTypeInitial RegistrationType = "Initial"
	RegistrationTypeRenewal RegistrationType = "Renewal"
)

// RegNoPrefix is the fixed prefix of every human-readable registration
// number.
const RegNoPrefix = "NS-TRP-"

// FormatRegNo builds the human-readable registration number from a numeric
// identifier, e.g. 42 -> "NS-TRP-00042".
func FormatRegNo(id int) string {
	return fmt.Sprintf("%s%05d", RegNoPrefix, id)
}
