package domain

// User is the slice of the profile directory this core needs to flatten
// sender details into message views. Profile CRUD lives elsewhere.
type User struct {
	ID        string
	Name      string
	AvatarURL string
}
