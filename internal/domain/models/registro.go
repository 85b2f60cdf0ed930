package models

// Registro is the server-side record created when a handover action
// completes. Its ID keys the printable receipt document.
type Registro struct {
	ID string `json:"id"`
}
