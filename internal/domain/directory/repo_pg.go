package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err, ""):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ conn queryable }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{conn: pool} }

const doctorCols = `id, name, specialty, email, phone, password_hash, available_times, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.Email, &d.Phone, &d.PasswordHash,
		&d.AvailableTimes, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO doctor (name, specialty, email, phone, password_hash, available_times, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		d.Name, d.Specialty, d.Email, d.Phone, d.PasswordHash, d.AvailableTimes, d.Active,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return mapErr(err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	return scanDoctor(r.conn.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE lower(email) = lower($1)`, email))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.conn.QueryRow(ctx, `
		UPDATE doctor SET name=$2, specialty=$3, email=$4, phone=$5, password_hash=$6,
			available_times=$7, active=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.Name, d.Specialty, d.Email, d.Phone, d.PasswordHash, d.AvailableTimes, d.Active,
	).Scan(&d.UpdatedAt)
	return mapErr(err)
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Name != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+f.Name+"%")
		idx++
	}
	if f.Specialty != "" {
		where += fmt.Sprintf(` AND lower(specialty) = lower($%d)`, idx)
		args = append(args, f.Specialty)
		idx++
	}
	switch strings.ToUpper(f.Period) {
	case "AM":
		where += ` AND EXISTS (SELECT 1 FROM unnest(available_times) t WHERE t < '12:00')`
	case "PM":
		where += ` AND EXISTS (SELECT 1 FROM unnest(available_times) t WHERE t >= '12:00')`
	}
	if f.ActiveOnly {
		where += ` AND active`
	}

	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM doctor`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorCols + ` FROM doctor` + where +
		fmt.Sprintf(` ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) Specialties(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT DISTINCT specialty FROM doctor WHERE active ORDER BY specialty`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// =========== Patient Repository ===========

type patientRepoPG struct{ conn queryable }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{conn: pool} }

const patientCols = `id, name, email, phone, address, password_hash, status, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.PasswordHash,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO patient (name, email, phone, address, password_hash, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Email, p.Phone, p.Address, p.PasswordHash, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(r.conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return scanPatient(r.conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE lower(email) = lower($1)`, email))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn.QueryRow(ctx, `
		UPDATE patient SET name=$2, email=$3, phone=$4, address=$5, password_hash=$6, status=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.PasswordHash, p.Status,
	).Scan(&p.UpdatedAt)
	return mapErr(err)
}

func (r *patientRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + name + "%"
	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn.Query(ctx, `SELECT `+patientCols+` FROM patient WHERE name ILIKE $1 ORDER BY name ASC, id ASC LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Admin Repository ===========

type adminRepoPG struct{ conn queryable }

func NewAdminRepoPG(pool *pgxpool.Pool) AdminRepository { return &adminRepoPG{conn: pool} }

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO admin (username, password_hash, totp_secret)
		VALUES ($1,$2,$3)
		RETURNING id, created_at`,
		a.Username, a.PasswordHash, a.TOTPSecret,
	).Scan(&a.ID, &a.CreatedAt)
	return mapErr(err)
}

func (r *adminRepoPG) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	err := r.conn.QueryRow(ctx,
		`SELECT id, username, password_hash, totp_secret, created_at FROM admin WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.TOTPSecret, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}
