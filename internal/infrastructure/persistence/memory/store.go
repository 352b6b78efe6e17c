// Package memory provides in-memory repository implementations.
// Useful for testing and development without a database.
package memory

import (
	"context"
	"sync"

	"github.com/avolokh/credstore/internal/domain/entity"
)

// Store is the shared in-memory state behind both repositories. A single
// mutex covers students and certificates so cross-entity operations observe
// a consistent view.
type Store struct {
	mu            sync.RWMutex
	students      map[int64]*entity.Student
	certificates  map[int64]*entity.Certificate
	certsByCode   map[string]int64 // code -> certificate ID
	nextStudentID int64
	nextCertID    int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		students:     make(map[int64]*entity.Student),
		certificates: make(map[int64]*entity.Certificate),
		certsByCode:  make(map[string]int64),
	}
}

// WithTransaction satisfies repository.TransactionManager. The store is
// snapshotted before fn runs; an error or panic restores the snapshot, so a
// unit of work that fails mid-cascade leaves no partial writes behind.
// Nested calls snapshot again and restore outside-in, like joined
// transactions unwinding.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := s.snapshot()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// storeSnapshot captures the full store state for rollback.
type storeSnapshot struct {
	students      map[int64]*entity.Student
	certificates  map[int64]*entity.Certificate
	certsByCode   map[string]int64
	nextStudentID int64
	nextCertID    int64
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := storeSnapshot{
		students:      make(map[int64]*entity.Student, len(s.students)),
		certificates:  make(map[int64]*entity.Certificate, len(s.certificates)),
		certsByCode:   make(map[string]int64, len(s.certsByCode)),
		nextStudentID: s.nextStudentID,
		nextCertID:    s.nextCertID,
	}
	for id, st := range s.students {
		snap.students[id] = st.Clone()
	}
	for id, c := range s.certificates {
		snap.certificates[id] = c.Clone()
	}
	for code, id := range s.certsByCode {
		snap.certsByCode[code] = id
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.students = snap.students
	s.certificates = snap.certificates
	s.certsByCode = snap.certsByCode
	s.nextStudentID = snap.nextStudentID
	s.nextCertID = snap.nextCertID
}

// Repositories holds all in-memory repository implementations.
type Repositories struct {
	Students     *StudentRepository
	Certificates *CertificateRepository
}

// NewRepositories creates all in-memory repositories over one shared store.
func NewRepositories(store *Store) *Repositories {
	return &Repositories{
		Students:     NewStudentRepository(store),
		Certificates: NewCertificateRepository(store),
	}
}
