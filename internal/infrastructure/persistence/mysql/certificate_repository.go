package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avolokh/credstore/internal/domain/entity"
	"github.com/avolokh/credstore/internal/domain/repository"
)

// certificateColumns maps predicate fields to column names.
var certificateColumns = map[repository.Field]string{
	repository.FieldCode: "code",
	repository.FieldLink: "link",
}

// CertificateRepository provides the MySQL implementation of
// repository.CertificateRepository.
type CertificateRepository struct {
	db *DB
}

// NewCertificateRepository creates a new MySQL-backed certificate repository.
func NewCertificateRepository(db *DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Insert persists a certificate row and assigns its identity. A preset
// non-zero ID is inserted as-is to support merge semantics.
// Returns ErrDuplicateCode on a code collision.
func (r *CertificateRepository) Insert(ctx context.Context, cert *entity.Certificate) error {
	var (
		result sql.Result
		err    error
	)

	if cert.ID != 0 {
		result, err = r.db.getExecutor(ctx).ExecContext(ctx, `
			INSERT INTO certificates (id, code, link, student_id)
			VALUES (?, ?, ?, ?)
		`, cert.ID, cert.Code, cert.Link, cert.StudentID)
	} else {
		result, err = r.db.getExecutor(ctx).ExecContext(ctx, `
			INSERT INTO certificates (code, link, student_id)
			VALUES (?, ?, ?)
		`, cert.Code, cert.Link, cert.StudentID)
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return repository.ErrDuplicateCode
		}
		return fmt.Errorf("insert certificate: %w", err)
	}

	if cert.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get inserted certificate id: %w", err)
		}
		cert.ID = id
	}
	return nil
}

// FindByID retrieves a certificate. Returns nil, nil if not found.
func (r *CertificateRepository) FindByID(ctx context.Context, id int64) (*entity.Certificate, error) {
	row := r.db.getExecutor(ctx).QueryRowContext(ctx, `
		SELECT id, code, link, student_id FROM certificates WHERE id = ?
	`, id)

	return scanCertificate(row)
}

// Update overwrites the mutable fields of an existing certificate.
// Returns ErrNotPersisted if the identity is unknown.
func (r *CertificateRepository) Update(ctx context.Context, cert *entity.Certificate) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		UPDATE certificates SET code = ?, link = ?, student_id = ? WHERE id = ?
	`, cert.Code, cert.Link, cert.StudentID, cert.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return repository.ErrDuplicateCode
		}
		return fmt.Errorf("update certificate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		exists, err := r.exists(ctx, cert.ID)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotPersisted
		}
	}
	return nil
}

// Delete removes a certificate by identity.
// Returns ErrNotPersisted if the identity is unknown.
func (r *CertificateRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `DELETE FROM certificates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
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

// FindAll returns every certificate ordered by identity ascending.
func (r *CertificateRepository) FindAll(ctx context.Context) ([]*entity.Certificate, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, code, link, student_id FROM certificates ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	return scanCertificates(rows)
}

// FindByStudent returns all certificates whose back-reference equals
// studentID. Empty slice if none.
func (r *CertificateRepository) FindByStudent(ctx context.Context, studentID int64) ([]*entity.Certificate, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, code, link, student_id FROM certificates
		WHERE student_id = ? ORDER BY id ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query certificates by student: %w", err)
	}
	defer rows.Close()

	return scanCertificates(rows)
}

// DeleteByStudent removes all certificates owned by the student and returns
// how many were removed.
func (r *CertificateRepository) DeleteByStudent(ctx context.Context, studentID int64) (int, error) {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		DELETE FROM certificates WHERE student_id = ?
	`, studentID)
	if err != nil {
		return 0, fmt.Errorf("delete certificates by student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// FindBy returns all certificates matching the predicate.
func (r *CertificateRepository) FindBy(ctx context.Context, p repository.Predicate) ([]*entity.Certificate, error) {
	if err := p.Validate(repository.FieldCode, repository.FieldLink); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, code, link, student_id FROM certificates
		WHERE %s = ? ORDER BY id ASC
	`, certificateColumns[p.Field])

	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, query, p.Value)
	if err != nil {
		return nil, fmt.Errorf("query certificates by %s: %w", p.Field, err)
	}
	defer rows.Close()

	return scanCertificates(rows)
}

// exists reports whether a certificate row with the given identity exists.
func (r *CertificateRepository) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.getExecutor(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) > 0 FROM certificates WHERE id = ?
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check certificate exists: %w", err)
	}
	return exists, nil
}

// scanCertificate scans a single row into a Certificate entity.
func scanCertificate(row *sql.Row) (*entity.Certificate, error) {
	var cert entity.Certificate

	err := row.Scan(&cert.ID, &cert.Code, &cert.Link, &cert.StudentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	return &cert, nil
}

// scanCertificates scans multiple rows into Certificate entities.
func scanCertificates(rows *sql.Rows) ([]*entity.Certificate, error) {
	var certs []*entity.Certificate

	for rows.Next() {
		var cert entity.Certificate
		if err := rows.Scan(&cert.ID, &cert.Code, &cert.Link, &cert.StudentID); err != nil {
			return nil, fmt.Errorf("scan certificate row: %w", err)
		}
		certs = append(certs, &cert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if certs == nil {
		certs = []*entity.Certificate{}
	}
	return certs, nil
}
