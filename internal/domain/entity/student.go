package entity

// Student is the owning side of the student/certificate aggregate. The
// certificate collection is populated only by lookups that load the full
// aggregate; listing operations leave it empty.
type Student struct {
	ID           int64
	Name         string
	College      string
	Phone        string
	Active       bool
	Certificates []*Certificate
}

// NewStudent creates a transient student. New students start active.
func NewStudent(name, college, phone string) *Student {
	return &Student{
		Name:    name,
		College: college,
		Phone:   phone,
		Active:  true,
	}
}

// Persisted reports whether the student has been assigned an identity.
func (s *Student) Persisted() bool {
	return s.ID != 0
}

// AttachCertificate adds a certificate to the collection and sets its
// back-reference, keeping both sides of the association consistent.
func (s *Student) AttachCertificate(c *Certificate) {
	c.StudentID = s.ID
	s.Certificates = append(s.Certificates, c)
}

// DetachCertificate removes the certificate with the given identity from the
// collection and clears its back-reference. Returns false if it was not
// attached.
func (s *Student) DetachCertificate(certID int64) bool {
	for i, c := range s.Certificates {
		if c.ID == certID {
			c.StudentID = 0
			s.Certificates = append(s.Certificates[:i], s.Certificates[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy, certificates included.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Certificates != nil {
		clone.Certificates = make([]*Certificate, len(s.Certificates))
		for i, c := range s.Certificates {
			clone.Certificates[i] = c.Clone()
		}
	}
	return &clone
}
