package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
)

// studentColumns maps predicate fields to column names. Only fields listed
// here are queryable; the map doubles as the injection allowlist.
var studentColumns = map[repository.Field]string{
	repository.FieldName:    "name",
	repository.FieldCollege: "college",
	repository.FieldPhone:   "phone",
	repository.FieldActive:  "active",
}

// StudentRepository provides the MySQL implementation of
// repository.StudentRepository.
type StudentRepository struct {
	db *DB
}

// NewStudentRepository creates a new MySQL-backed student repository.
func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Insert persists a student row and assigns its identity. A preset non-zero
// ID is inserted as-is to support merge semantics.
func (r *StudentRepository) Insert(ctx context.Context, student *entity.Student) error {
	if student.ID != 0 {
		_, err := r.db.getExecutor(ctx).ExecContext(ctx, `
			INSERT INTO students (id, name, college, phone, active)
			VALUES (?, ?, ?, ?, ?)
		`, student.ID, student.Name, student.College, student.Phone, student.Active)
		if err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
		return nil
	}

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO students (name, college, phone, active)
		VALUES (?, ?, ?, ?)
	`, student.Name, student.College, student.Phone, student.Active)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get inserted student id: %w", err)
	}
	student.ID = id
	return nil
}

// FindByID retrieves a student with its certificate collection loaded.
// Returns nil, nil if not found.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*entity.Student, error) {
	row := r.db.getExecutor(ctx).QueryRowContext(ctx, `
		SELECT id, name, college, phone, active FROM students WHERE id = ?
	`, id)

	student, err := scanStudent(row)
	if err != nil || student == nil {
		return student, err
	}

	certs, err := r.loadCertificates(ctx, id)
	if err != nil {
		return nil, err
	}
	student.Certificates = certs
	return student, nil
}

// Update overwrites the mutable fields of an existing student.
// Returns ErrNotPersisted if the identity is unknown.
func (r *StudentRepository) Update(ctx context.Context, student *entity.Student) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		UPDATE students SET name = ?, college = ?, phone = ?, active = ? WHERE id = ?
	`, student.Name, student.College, student.Phone, student.Active, student.ID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// MySQL reports zero affected rows for a no-change update too, so
		// distinguish a missing row from an identical one.
		exists, err := r.exists(ctx, student.ID)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotPersisted
		}
	}
	return nil
}

// Delete removes a student row by identity.
// Returns ErrNotPersisted if the identity is unknown.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotPersisted
	}
	return nil
}

// FindAll returns every student ordered by identity ascending.
func (r *StudentRepository) FindAll(ctx context.Context) ([]*entity.Student, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, name, college, phone, active FROM students ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// FindPage returns at most limit students ordered by identity ascending,
// skipping offset rows.
func (r *StudentRepository) FindPage(ctx context.Context, limit, offset int) ([]*entity.Student, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, name, college, phone, active FROM students
		ORDER BY id ASC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query student page: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// FindByName returns all students with exactly the given name.
func (r *StudentRepository) FindByName(ctx context.Context, name string) ([]*entity.Student, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, name, college, phone, active FROM students
		WHERE name = ? ORDER BY id ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query students by name: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// FindBy returns all students matching the predicate. The predicate field is
// resolved through the column allowlist; the value is bound as a parameter.
func (r *StudentRepository) FindBy(ctx context.Context, p repository.Predicate) ([]*entity.Student, error) {
	if err := p.Validate(repository.FieldName, repository.FieldCollege, repository.FieldPhone, repository.FieldActive); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, college, phone, active FROM students
		WHERE %s = ? ORDER BY id ASC
	`, studentColumns[p.Field])

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, p.Value)
	if err != nil {
		return nil, fmt.Errorf("query students by %s: %w", p.Field, err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// Count returns the number of persisted students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.getExecutor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// exists reports whether a student row with the given identity exists.
func (r *StudentRepository) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.getExecutor(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) > 0 FROM students WHERE id = ?
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student exists: %w", err)
	}
	return exists, nil
}

// loadCertificates fetches the certificate collection for one student.
func (r *StudentRepository) loadCertificates(ctx context.Context, studentID int64) ([]*entity.Certificate, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, code, link, student_id FROM certificates
		WHERE student_id = ? ORDER BY id ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query certificates of student: %w", err)
	}
	defer rows.Close()

	return scanCertificates(rows)
}

// scanStudent scans a single row into a Student entity.
func scanStudent(row *sql.Row) (*entity.Student, error) {
	var student entity.Student

	err := row.Scan(&student.ID, &student.Name, &student.College, &student.Phone, &student.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &student, nil
}

// scanStudents scans multiple rows into Student entities.
func scanStudents(rows *sql.Rows) ([]*entity.Student, error) {
	var students []*entity.Student

	for rows.Next() {
		var student entity.Student
		if err := rows.Scan(&student.ID, &student.Name, &student.College, &student.Phone, &student.Active); err != nil {
			return nil, fmt.Errorf("scan student row: %w", err)
		}
		students = append(students, &student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if students == nil {
		students = []*entity.Student{}
	}
	return students, nil
}
