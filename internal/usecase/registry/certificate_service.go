package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
	"github.com/avolokh/credstore/internal/infrastructure/observability"
)

// CertificateService manages certificates directly, outside the owning
// student aggregate.
type CertificateService struct {
	certs   repository.CertificateRepository
	tx      repository.TransactionManager
	logger  Logger
	metrics *observability.Metrics
}

// NewCertificateService creates a new CertificateService with dependencies.
func NewCertificateService(
	certs repository.CertificateRepository,
	tx repository.TransactionManager,
	logger Logger,
	metrics *observability.Metrics,
) *CertificateService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &CertificateService{
		certs:   certs,
		tx:      tx,
		logger:  logger,
		metrics: metrics,
	}
}

// Save persists a transient certificate in one unit of work. The certificate
// comes back carrying its assigned identity.
func (s *CertificateService) Save(ctx context.Context, cert *entity.Certificate) error {
	opID := uuid.NewString()
	start := time.Now()

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.certs.Insert(ctx, cert)
	})

	s.metrics.RecordOperation(ctx, "save", "certificate", time.Since(start), err == nil)
	s.metrics.RecordTransaction(ctx, err != nil)
	if err != nil {
		s.logger.Error("save certificate failed", "op", opID, "code", cert.Code, "error", err)
		return wrapPersistence("save certificate", err)
	}

	s.logger.Info("certificate saved", "op", opID, "certificateID", cert.ID, "code", cert.Code)
	return nil
}

// GetByID retrieves a certificate. Returns nil, nil when absent.
func (s *CertificateService) GetByID(ctx context.Context, id int64) (*entity.Certificate, error) {
	start := time.Now()

	cert, err := s.certs.FindByID(ctx, id)
	s.metrics.RecordOperation(ctx, "get_by_id", "certificate", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("get certificate", err)
	}
	return cert, nil
}

// Update applies merge semantics: mutable fields are overwritten, and a
// certificate whose identity is unknown to storage is re-inserted as-is.
func (s *CertificateService) Update(ctx context.Context, cert *entity.Certificate) error {
	return s.update(ctx, cert, false)
}

// UpdateExisting is the strict variant of Update: it fails with
// ErrNotPersisted instead of silently inserting when the certificate's
// identity is unknown to storage.
func (s *CertificateService) UpdateExisting(ctx context.Context, cert *entity.Certificate) error {
	return s.update(ctx, cert, true)
}

func (s *CertificateService) update(ctx context.Context, cert *entity.Certificate, strict bool) error {
	opID := uuid.NewString()
	start := time.Now()
	op := "update"
	if strict {
		op = "update_existing"
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		err := s.certs.Update(ctx, cert)
		if errors.Is(err, repository.ErrNotPersisted) {
			if strict {
				return err
			}
			if err := s.certs.Insert(ctx, cert); err != nil {
				return fmt.Errorf("merge-insert certificate: %w", err)
			}
			return nil
		}
		return err
	})

	s.metrics.RecordOperation(ctx, op, "certificate", time.Since(start), err == nil)
	s.metrics.RecordTransaction(ctx, err != nil)
	if err != nil {
		s.logger.Error("update certificate failed", "op", opID, "strict", strict, "error", err)
		return wrapPersistence("update certificate", err)
	}

	s.logger.Info("certificate updated", "op", opID, "certificateID", cert.ID)
	return nil
}

// Delete removes a certificate. An unknown identity is a no-op, reported as
// (false, nil) rather than an error.
func (s *CertificateService) Delete(ctx context.Context, id int64) (bool, error) {
	opID := uuid.NewString()
	start := time.Now()

	var found bool
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cert, err := s.certs.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find certificate: %w", err)
		}
		if cert == nil {
			return nil
		}
		found = true
		return s.certs.Delete(ctx, id)
	})

	s.metrics.RecordOperation(ctx, "delete", "certificate", time.Since(start), err == nil)
	s.metrics.RecordTransaction(ctx, err != nil)
	if err != nil {
		s.logger.Error("delete certificate failed", "op", opID, "certificateID", id, "error", err)
		return false, wrapPersistence("delete certificate", err)
	}

	s.logger.Info("certificate delete finished", "op", opID, "certificateID", id, "found", found)
	return found, nil
}

// GetAll returns every certificate ordered by identity ascending.
func (s *CertificateService) GetAll(ctx context.Context) ([]*entity.Certificate, error) {
	start := time.Now()

	certs, err := s.certs.FindAll(ctx)
	s.metrics.RecordOperation(ctx, "get_all", "certificate", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("list certificates", err)
	}
	return certs, nil
}

// FindByStudent returns all certificates owned by the student, empty when
// the student has none or does not exist.
func (s *CertificateService) FindByStudent(ctx context.Context, studentID int64) ([]*entity.Certificate, error) {
	start := time.Now()

	certs, err := s.certs.FindByStudent(ctx, studentID)
	s.metrics.RecordOperation(ctx, "find_by_student", "certificate", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("find certificates of student", err)
	}
	return certs, nil
}

// FindByCode looks up a certificate by its unique code. Returns nil, nil
// when no certificate matches and ErrAmbiguousResult when more than one
// does.
func (s *CertificateService) FindByCode(ctx context.Context, code string) (*entity.Certificate, error) {
	start := time.Now()

	matches, err := s.certs.FindBy(ctx, repository.Eq(repository.FieldCode, code))
	s.metrics.RecordOperation(ctx, "find_by_code", "certificate", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("find certificate by code", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: code %q matched %d certificates", repository.ErrAmbiguousResult, code, len(matches))
	}
}

// FindBy returns all certificates matching the predicate.
func (s *CertificateService) FindBy(ctx context.Context, p repository.Predicate) ([]*entity.Certificate, error) {
	start := time.Now()

	certs, err := s.certs.FindBy(ctx, p)
	s.metrics.RecordOperation(ctx, "find_by", "certificate", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("find certificates", err)
	}
	return certs, nil
}
