package credentials

// DefaultPassword is stored and returned when no password exists yet.
const DefaultPassword = "0000"

// Store holds the single shared admin password.
type Store interface {
	ReadPassword() (string, error)
	WritePassword(password string) error
	Ping() error
}
