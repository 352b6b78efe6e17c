package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
)

// CertificateRepository provides an in-memory implementation of
// repository.CertificateRepository. Thread-safe for concurrent access.
type CertificateRepository struct {
	store *Store
}

// NewCertificateRepository creates a new in-memory certificate repository.
func NewCertificateRepository(store *Store) *CertificateRepository {
	return &CertificateRepository{store: store}
}

// Insert persists a certificate and assigns its identity. A preset non-zero
// ID is kept to support merge semantics.
// Returns ErrDuplicateCode on a code collision.
func (r *CertificateRepository) Insert(ctx context.Context, cert *entity.Certificate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existingID, ok := r.store.certsByCode[cert.Code]; ok && existingID != cert.ID {
		return repository.ErrDuplicateCode
	}

	if cert.ID == 0 {
		r.store.nextCertID++
		cert.ID = r.store.nextCertID
	} else {
		// Same failure a SQL backend raises on a primary-key collision.
		if _, exists := r.store.certificates[cert.ID]; exists {
			return fmt.Errorf("insert certificate: id %d already exists", cert.ID)
		}
		if cert.ID > r.store.nextCertID {
			r.store.nextCertID = cert.ID
		}
	}

	r.store.certificates[cert.ID] = cert.Clone()
	r.store.certsByCode[cert.Code] = cert.ID
	return nil
}

// FindByID retrieves a certificate. Returns nil, nil if not found.
func (r *CertificateRepository) FindByID(ctx context.Context, id int64) (*entity.Certificate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	cert, ok := r.store.certificates[id]
	if !ok {
		return nil, nil
	}
	return cert.Clone(), nil
}

// Update overwrites the mutable fields of an existing certificate.
// Returns ErrNotPersisted if the identity is unknown and ErrDuplicateCode if
// the new code collides with another certificate.
func (r *CertificateRepository) Update(ctx context.Context, cert *entity.Certificate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.certificates[cert.ID]
	if !ok {
		return repository.ErrNotPersisted
	}

	if existingID, ok := r.store.certsByCode[cert.Code]; ok && existingID != cert.ID {
		return repository.ErrDuplicateCode
	}

	delete(r.store.certsByCode, stored.Code)
	r.store.certificates[cert.ID] = cert.Clone()
	r.store.certsByCode[cert.Code] = cert.ID
	return nil
}

// Delete removes a certificate by identity.
// Returns ErrNotPersisted if the identity is unknown.
func (r *CertificateRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.certificates[id]
	if !ok {
		return repository.ErrNotPersisted
	}
	delete(r.store.certsByCode, stored.Code)
	delete(r.store.certificates, id)
	return nil
}

// FindAll returns every certificate ordered by identity ascending.
func (r *CertificateRepository) FindAll(ctx context.Context) ([]*entity.Certificate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.sortedLocked(func(*entity.Certificate) bool { return true }), nil
}

// FindByStudent returns all certificates whose back-reference equals
// studentID. Empty slice if none.
func (r *CertificateRepository) FindByStudent(ctx context.Context, studentID int64) ([]*entity.Certificate, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.certificatesOfLocked(studentID), nil
}

// DeleteByStudent removes all certificates owned by the student and returns
// how many were removed.
func (r *CertificateRepository) DeleteByStudent(ctx context.Context, studentID int64) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	removed := 0
	for id, c := range r.store.certificates {
		if c.StudentID == studentID {
			delete(r.store.certsByCode, c.Code)
			delete(r.store.certificates, id)
			removed++
		}
	}
	return removed, nil
}

// FindBy returns all certificates matching the predicate.
func (r *CertificateRepository) FindBy(ctx context.Context, p repository.Predicate) ([]*entity.Certificate, error) {
	if err := p.Validate(repository.FieldCode, repository.FieldLink); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.sortedLocked(func(c *entity.Certificate) bool {
		switch p.Field {
		case repository.FieldCode:
			return c.Code == p.Value
		case repository.FieldLink:
			return c.Link == p.Value
		default:
			return false
		}
	}), nil
}

// sortedLocked returns clones of all certificates matching the filter,
// ordered by identity ascending. Caller holds at least a read lock.
func (r *CertificateRepository) sortedLocked(match func(*entity.Certificate) bool) []*entity.Certificate {
	certs := make([]*entity.Certificate, 0, len(r.store.certificates))
	for _, c := range r.store.certificates {
		if match(c) {
			certs = append(certs, c.Clone())
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].ID < certs[j].ID })
	return certs
}
