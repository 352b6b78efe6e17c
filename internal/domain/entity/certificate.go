package entity

// Certificate is an owned credential. Code is unique across all
// certificates; StudentID is the back-reference to the owning student and is
// zero while detached.
type Certificate struct {
	ID        int64
	Code      string
	Link      string
	StudentID int64
}

// NewCertificate creates a transient, detached certificate.
func NewCertificate(code, link string) *Certificate {
	return &Certificate{
		Code: code,
		Link: link,
	}
}

// Persisted reports whether the certificate has been assigned an identity.
func (c *Certificate) Persisted() bool {
	return c.ID != 0
}

// Clone returns a copy.
func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
