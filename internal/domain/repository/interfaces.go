package repository

import (
	"context"

	"github.com/avolokh/credstore/internal/domain/entity"
)

// StudentRepository defines the contract for student persistence.
// Implementations are storage primitives: they do not open transactions
// themselves but honor a transaction carried in the context by the
// TransactionManager that produced it.
type StudentRepository interface {
	// Insert persists a student row and assigns its identity. A student
	// carrying a preset non-zero ID is inserted with that identity (merge
	// support). Attached certificates are not cascaded here; that is the
	// service's job, inside one unit of work.
	Insert(ctx context.Context, student *entity.Student) error

	// FindByID retrieves a student with its certificate collection loaded.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*entity.Student, error)

	// Update overwrites the mutable fields of an existing student.
	// Returns ErrNotPersisted if the identity is unknown.
	Update(ctx context.Context, student *entity.Student) error

	// Delete removes a student row by identity.
	// Returns ErrNotPersisted if the identity is unknown. Certificate cleanup
	// is the caller's responsibility within the same unit of work.
	Delete(ctx context.Context, id int64) error

	// FindAll returns every student ordered by identity ascending, with empty
	// certificate collections.
	FindAll(ctx context.Context) ([]*entity.Student, error)

	// FindPage returns at most limit students ordered by identity ascending,
	// skipping offset rows. Page boundaries are stable absent concurrent
	// writes.
	FindPage(ctx context.Context, limit, offset int) ([]*entity.Student, error)

	// FindByName returns all students with exactly the given name. The value
	// is parameter-bound. Uniqueness enforcement is the caller's concern.
	FindByName(ctx context.Context, name string) ([]*entity.Student, error)

	// FindBy returns all students matching the predicate.
	// Returns ErrInvalidArgument for fields students do not expose.
	FindBy(ctx context.Context, p Predicate) ([]*entity.Student, error)

	// Count returns the number of persisted students.
	Count(ctx context.Context) (int, error)
}

// CertificateRepository defines the contract for certificate persistence.
type CertificateRepository interface {
	// Insert persists a certificate row and assigns its identity. A preset
	// non-zero ID is kept (merge support).
	// Returns ErrDuplicateCode on a code collision.
	Insert(ctx context.Context, cert *entity.Certificate) error

	// FindByID retrieves a certificate. Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*entity.Certificate, error)

	// Update overwrites the mutable fields of an existing certificate.
	// Returns ErrNotPersisted if the identity is unknown.
	Update(ctx context.Context, cert *entity.Certificate) error

	// Delete removes a certificate by identity.
	// Returns ErrNotPersisted if the identity is unknown.
	Delete(ctx context.Context, id int64) error

	// FindAll returns every certificate ordered by identity ascending.
	FindAll(ctx context.Context) ([]*entity.Certificate, error)

	// FindByStudent returns all certificates whose back-reference equals
	// studentID. Empty slice if the student has none or does not exist.
	FindByStudent(ctx context.Context, studentID int64) ([]*entity.Certificate, error)

	// DeleteByStudent removes all certificates owned by the student and
	// returns how many were removed.
	DeleteByStudent(ctx context.Context, studentID int64) (int, error)

	// FindBy returns all certificates matching the predicate.
	FindBy(ctx context.Context, p Predicate) ([]*entity.Certificate, error)
}

// TransactionManager brackets a unit of work in a single commit-or-rollback
// scope. fn runs with the active transaction stashed in its context so that
// repository calls inside it join the same transaction. On error or panic the
// transaction is rolled back and the failure propagates unchanged; the
// underlying resource is released on every exit path.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
