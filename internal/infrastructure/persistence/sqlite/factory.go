package sqlite

// Repositories holds all SQLite repository implementations.
type Repositories struct {
	Students     *StudentRepository
	Certificates *CertificateRepository
}

// NewRepositories creates all SQLite repositories with a shared database
// connection. The shared DB instance is also the transaction manager, so
// repositories created here join transactions opened through it.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Students:     NewStudentRepository(db),
		Certificates: NewCertificateRepository(db),
	}
}
