package domain

// User is a presence record: one instance exists per room membership.
// The identity comes from the authentication collaborator and is stable,
// the display name is captured at connection time.
type User struct {
	ID          string
	DisplayName string
}
