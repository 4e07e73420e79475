package entity

// User is the profile of a player as known to the engine. Accounts themselves
// are managed outside; only the names needed for exports and announcements are
// kept here.
type User struct {
	Base
	Name       string
	PublicName string
}
