package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
)

// StudentRepository provides an in-memory implementation of
// repository.StudentRepository. Thread-safe for concurrent access.
type StudentRepository struct {
	store *Store
}

// NewStudentRepository creates a new in-memory student repository.
func NewStudentRepository(store *Store) *StudentRepository {
	return &StudentRepository{store: store}
}

// Insert persists a student and assigns its identity. A preset non-zero ID
// is kept to support merge semantics.
func (r *StudentRepository) Insert(ctx context.Context, student *entity.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if student.ID == 0 {
		r.store.nextStudentID++
		student.ID = r.store.nextStudentID
	} else {
		// Same failure a SQL backend raises on a primary-key collision.
		if _, exists := r.store.students[student.ID]; exists {
			return fmt.Errorf("insert student: id %d already exists", student.ID)
		}
		if student.ID > r.store.nextStudentID {
			r.store.nextStudentID = student.ID
		}
	}

	// Store a copy without the collection; certificates live in their own
	// table-equivalent.
	stored := student.Clone()
	stored.Certificates = nil
	r.store.students[student.ID] = stored
	return nil
}

// FindByID retrieves a student with its certificate collection loaded.
// Returns nil, nil if not found.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*entity.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stored, ok := r.store.students[id]
	if !ok {
		return nil, nil
	}

	student := stored.Clone()
	student.Certificates = r.store.certificatesOfLocked(id)
	return student, nil
}

// Update overwrites the mutable fields of an existing student.
// Returns ErrNotPersisted if the identity is unknown.
func (r *StudentRepository) Update(ctx context.Context, student *entity.Student) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.students[student.ID]; !ok {
		return repository.ErrNotPersisted
	}

	stored := student.Clone()
	stored.Certificates = nil
	r.store.students[student.ID] = stored
	return nil
}

// Delete removes a student by identity.
// Returns ErrNotPersisted if the identity is unknown.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.students[id]; !ok {
		return repository.ErrNotPersisted
	}
	delete(r.store.students, id)
	return nil
}

// FindAll returns every student ordered by identity ascending.
func (r *StudentRepository) FindAll(ctx context.Context) ([]*entity.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.sortedLocked(func(*entity.Student) bool { return true }), nil
}

// FindPage returns at most limit students ordered by identity ascending,
// skipping offset rows.
func (r *StudentRepository) FindPage(ctx context.Context, limit, offset int) ([]*entity.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := r.sortedLocked(func(*entity.Student) bool { return true })
	if offset >= len(all) {
		return []*entity.Student{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// FindByName returns all students with exactly the given name.
func (r *StudentRepository) FindByName(ctx context.Context, name string) ([]*entity.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.sortedLocked(func(s *entity.Student) bool { return s.Name == name }), nil
}

// FindBy returns all students matching the predicate.
func (r *StudentRepository) FindBy(ctx context.Context, p repository.Predicate) ([]*entity.Student, error) {
	if err := p.Validate(repository.FieldName, repository.FieldCollege, repository.FieldPhone, repository.FieldActive); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.sortedLocked(func(s *entity.Student) bool {
		switch p.Field {
		case repository.FieldName:
			return s.Name == p.Value
		case repository.FieldCollege:
			return s.College == p.Value
		case repository.FieldPhone:
			return s.Phone == p.Value
		case repository.FieldActive:
			return s.Active == p.Value
		default:
			return false
		}
	}), nil
}

// Count returns the number of persisted students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return len(r.store.students), nil
}

// sortedLocked returns clones of all students matching the filter, ordered
// by identity ascending. Caller holds at least a read lock.
func (r *StudentRepository) sortedLocked(match func(*entity.Student) bool) []*entity.Student {
	students := make([]*entity.Student, 0, len(r.store.students))
	for _, s := range r.store.students {
		if match(s) {
			students = append(students, s.Clone())
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

// certificatesOfLocked returns clones of the certificates owned by the
// student, ordered by identity ascending. Caller holds at least a read lock.
func (s *Store) certificatesOfLocked(studentID int64) []*entity.Certificate {
	certs := make([]*entity.Certificate, 0)
	for _, c := range s.certificates {
		if c.StudentID == studentID {
			certs = append(certs, c.Clone())
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].ID < certs[j].ID })
	return certs
}
