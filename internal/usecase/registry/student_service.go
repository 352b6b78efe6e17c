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

// StudentService manages the student aggregate. Writes cascade to the
// attached certificate collection inside one unit of work.
type StudentService struct {
	students repository.StudentRepository
	certs    repository.CertificateRepository
	tx       repository.TransactionManager
	logger   Logger
	metrics  *observability.Metrics
}

// NewStudentService creates a new StudentService with dependencies. logger
// may be nil; metrics may be nil when telemetry is not wired.
func NewStudentService(
	students repository.StudentRepository,
	certs repository.CertificateRepository,
	tx repository.TransactionManager,
	logger Logger,
	metrics *observability.Metrics,
) *StudentService {
	if logger == nil {
		logger = nopLogger{}
	}
	return &StudentService{
		students: students,
		certs:    certs,
		tx:       tx,
		logger:   logger,
		metrics:  metrics,
	}
}

// Save persists a transient student together with its attached certificates
// in one unit of work. The student comes back carrying its assigned identity.
func (s *StudentService) Save(ctx context.Context, student *entity.Student) error {
	opID := uuid.NewString()
	start := time.Now()

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.students.Insert(ctx, student); err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
		for _, cert := range student.Certificates {
			cert.StudentID = student.ID
			if err := s.certs.Insert(ctx, cert); err != nil {
				return fmt.Errorf("insert certificate %q: %w", cert.Code, err)
			}
		}
		return nil
	})

	s.metrics.RecordOperation(ctx, "save", "student", time.Since(start), err == nil)
	s.metrics.RecordTransaction(ctx, err != nil)
	if err != nil {
		s.logger.Error("save student failed", "op", opID, "error", err)
		return wrapPersistence("save student", err)
	}

	s.logger.Info("student saved",
		"op", opID,
		"studentID", student.ID,
		"certificates", len(student.Certificates),
	)
	return nil
}

// GetByID retrieves a student with its certificate collection loaded.
// Returns nil, nil when absent.
func (s *StudentService) GetByID(ctx context.Context, id int64) (*entity.Student, error) {
	start := time.Now()

	student, err := s.students.FindByID(ctx, id)
	s.metrics.RecordOperation(ctx, "get_by_id", "student", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("get student", err)
	}
	return student, nil
}

// Update applies merge semantics: mutable fields are overwritten, and a
// student whose identity is unknown to storage is re-inserted as-is. The
// certificate collection is reconciled in the same unit of work: new
// certificates are inserted, kept ones updated, and certificates no longer
// attached are removed from storage.
func (s *StudentService) Update(ctx context.Context, student *entity.Student) error {
	return s.update(ctx, student, false)
}

// UpdateExisting is the strict variant of Update: it fails with
// ErrNotPersisted instead of silently inserting when the student's identity
// is unknown to storage.
func (s *StudentService) UpdateExisting(ctx context.Context, student *entity.Student) error {
	return s.update(ctx, student, true)
}

func (s *StudentService) update(ctx context.Context, student *entity.Student, strict bool) error {
	opID := uuid.NewString()
	start := time.Now()
	op := "update"
	if strict {
		op = "update_existing"
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		err := s.students.Update(ctx, student)
		if errors.Is(err, repository.ErrNotPersisted) {
			if strict {
				return err
			}
			if err := s.students.Insert(ctx, student); err != nil {
				return fmt.Errorf("merge-insert student: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		return s.reconcileCertificates(ctx, student)
	})

	s.metrics.RecordOperation(ctx, op, "student", time.Since(start), err == nil)
	s.metrics.RecordTransaction(ctx, err != nil)
	if err != nil {
		s.logger.Error("update student failed", "op", opID, "strict", strict, "error", err)
		return wrapPersistence("update student", err)
	}

	s.logger.Info("student updated", "op", opID, "studentID", student.ID)
	return nil
}

// reconcileCertificates aligns storage with the in-memory certificate
// collection: inserts new entries, updates kept ones and deletes entries
// that are no longer attached.
func (s *StudentService) reconcileCertificates(ctx context.Context, student *entity.Student) error {
	existing, err := s.certs.FindByStudent(ctx, student.ID)
	if err != nil {
		return fmt.Errorf("load certificates: %w", err)
	}

	existingByID := make(map[int64]*entity.Certificate, len(existing))
	for _, c := range existing {
		existingByID[c.ID] = c
	}

	attached := make(map[int64]bool, len(student.Certificates))
	for _, cert := range student.Certificates {
		cert.StudentID = student.ID
		if _, known := existingByID[cert.ID]; known {
			attached[cert.ID] = true
			if err := s.certs.Update(ctx, cert); err != nil {
				return fmt.Errorf("update certificate %q: %w", cert.Code, err)
			}
			continue
		}
		if err := s.certs.Insert(ctx, cert); err != nil {
			return fmt.Errorf("insert certificate %q: %w", cert.Code, err)
		}
		attached[cert.ID] = true
	}

	// Orphan removal: whatever the collection no longer holds goes away.
	for _, c := range existing {
		if !attached[c.ID] {
			if err := s.certs.Delete(ctx, c.ID); err != nil {
				return fmt.Errorf("remove orphaned certificate %q: %w", c.Code, err)
			}
		}
	}
	return nil
}

// Delete removes a student and its certificates in one unit of work. An
// unknown identity is a no-op, reported as (false, nil) rather than an error.
func (s *StudentService) Delete(ctx context.Context, id int64) (bool, error) {
	opID := uuid.NewString()
	start := time.Now()

	var found bool
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find student: %w", err)
		}
		if student == nil {
			return nil
		}
		found = true

		if _, err := s.certs.DeleteByStudent(ctx, id); err != nil {
			return fmt.Errorf("delete certificates: %w", err)
		}
		if err := s.students.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		return nil
	})

	s.metrics.RecordOperation(ctx, "delete", "student", time.Since(start), err == nil)
	s.metrics.RecordTransaction(ctx, err != nil)
	if err != nil {
		s.logger.Error("delete student failed", "op", opID, "studentID", id, "error", err)
		return false, wrapPersistence("delete student", err)
	}

	s.logger.Info("student delete finished", "op", opID, "studentID", id, "found", found)
	return found, nil
}

// GetAll returns every student ordered by identity ascending.
func (s *StudentService) GetAll(ctx context.Context) ([]*entity.Student, error) {
	start := time.Now()

	students, err := s.students.FindAll(ctx)
	s.metrics.RecordOperation(ctx, "get_all", "student", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("list students", err)
	}
	return students, nil
}

// GetPage returns the zero-indexed page of the given size, ordered by
// identity ascending. Invalid arguments fail before any storage work.
func (s *StudentService) GetPage(ctx context.Context, page, size int) ([]*entity.Student, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: page %d must not be negative", repository.ErrInvalidArgument, page)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: page size %d must be positive", repository.ErrInvalidArgument, size)
	}

	start := time.Now()
	students, err := s.students.FindPage(ctx, size, page*size)
	s.metrics.RecordOperation(ctx, "get_page", "student", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("page students", err)
	}
	return students, nil
}

// FindByName looks up a student by its by-convention-unique name. Returns
// nil, nil when no student matches and ErrAmbiguousResult when more than one
// does: duplicate names are a data consistency violation, not a reason to
// silently pick one.
func (s *StudentService) FindByName(ctx context.Context, name string) (*entity.Student, error) {
	start := time.Now()

	matches, err := s.students.FindByName(ctx, name)
	s.metrics.RecordOperation(ctx, "find_by_name", "student", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("find student by name", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: name %q matched %d students", repository.ErrAmbiguousResult, name, len(matches))
	}
}

// FindBy returns all students matching the predicate.
func (s *StudentService) FindBy(ctx context.Context, p repository.Predicate) ([]*entity.Student, error) {
	start := time.Now()

	students, err := s.students.FindBy(ctx, p)
	s.metrics.RecordOperation(ctx, "find_by", "student", time.Since(start), err == nil)
	if err != nil {
		return nil, wrapPersistence("find students", err)
	}
	return students, nil
}

// Count returns the number of persisted students.
func (s *StudentService) Count(ctx context.Context) (int, error) {
	count, err := s.students.Count(ctx)
	if err != nil {
		return 0, wrapPersistence("count students", err)
	}
	return count, nil
}
