package entity

// Contact is a person the dialer places an outbound call to.
type Contact struct {
	ID    int64
	Name  string
	Phone string
}
