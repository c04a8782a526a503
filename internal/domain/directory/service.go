package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinic/clinic/internal/platform/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPRequired        = errors.New("one-time password required")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	admins   AdminRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository, admins AdminRepository) *Service {
	return &Service{doctors: doctors, patients: patients, admins: admins}
}

// -- Doctors --

type DoctorInput struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Specialty      string   `json:"specialty" validate:"required,max=128"`
	Email          string   `json:"email" validate:"required,email"`
	Phone          string   `json:"phone" validate:"required,max=32"`
	Password       string   `json:"password" validate:"omitempty,min=8"`
	AvailableTimes []string `json:"available_times" validate:"dive,slot"`
}

func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	d := &Doctor{
		Name:           strings.TrimSpace(in.Name),
		Specialty:      strings.TrimSpace(in.Specialty),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:          strings.TrimSpace(in.Phone),
		PasswordHash:   hash,
		AvailableTimes: normalizeTimes(in.AvailableTimes),
		Active:         true,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDoctor replaces the doctor's profile. An empty password keeps the
// current one.
func (s *Service) UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Name = strings.TrimSpace(in.Name)
	d.Specialty = strings.TrimSpace(in.Specialty)
	d.Email = strings.ToLower(strings.TrimSpace(in.Email))
	d.Phone = strings.TrimSpace(in.Phone)
	d.AvailableTimes = normalizeTimes(in.AvailableTimes)
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		d.PasswordHash = hash
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SetDoctorActive toggles whether the doctor accepts bookings. Existing
// appointments are left untouched.
func (s *Service) SetDoctorActive(ctx context.Context, id int64, active bool) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Active == active {
		return d, nil
	}
	d.Active = active
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	switch strings.ToUpper(f.Period) {
	case "", "AM", "PM":
	default:
		return nil, 0, fmt.Errorf("%w: period must be AM or PM", ErrInvalidInput)
	}
	return s.doctors.List(ctx, f, limit, offset)
}

func (s *Service) Specialties(ctx context.Context) ([]string, error) {
	return s.doctors.Specialties(ctx)
}

// -- Patients --

type PatientInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"required,max=32"`
	Address  *string `json:"address,omitempty"`
	Password string  `json:"password" validate:"omitempty,min=8"`
}

func (s *Service) RegisterPatient(ctx context.Context, in PatientInput) (*Patient, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	p := &Patient{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      in.Address,
		PasswordHash: hash,
		Status:       PatientActive,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPatient returns a patient profile to the patient themself or an admin.
func (s *Service) GetPatient(ctx context.Context, caller auth.Identity, id int64) (*Patient, error) {
	if err := canAccessPatient(caller, id); err != nil {
		return nil, err
	}
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, caller auth.Identity, id int64, in PatientInput) (*Patient, error) {
	if err := canAccessPatient(caller, id); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Email = strings.ToLower(strings.TrimSpace(in.Email))
	p.Phone = strings.TrimSpace(in.Phone)
	p.Address = in.Address
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		p.PasswordHash = hash
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPatientStatus lets an admin deactivate or reactivate an account.
func (s *Service) SetPatientStatus(ctx context.Context, id int64, status PatientStatus) (*Patient, error) {
	if status != PatientActive && status != PatientInactive {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, strings.TrimSpace(name), limit, offset)
}

func canAccessPatient(caller auth.Identity, id int64) error {
	if !caller.Authenticated() {
		return auth.ErrUnauthenticated
	}
	if caller.IsAdmin() || (caller.Role == auth.RolePatient && caller.UserID == id) {
		return nil
	}
	return auth.ErrUnauthorized
}

// -- Admins --

// CreateAdmin registers an operator account. When withTOTP is set the
// returned otpauth URL must be enrolled in an authenticator app.
func (s *Service) CreateAdmin(ctx context.Context, username, password string, withTOTP bool) (*Admin, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	a := &Admin{Username: username, PasswordHash: hash}
	var otpURL string
	if withTOTP {
		key, err := auth.GenerateTOTP("clinic", username)
		if err != nil {
			return nil, "", err
		}
		secret := key.Secret()
		a.TOTPSecret = &secret
		otpURL = key.URL()
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, "", err
	}
	return a, otpURL, nil
}

// -- Login --

type LoginRequest struct {
	Role       auth.Role `json:"role" validate:"required,oneof=patient doctor admin"`
	Identifier string    `json:"identifier" validate:"required"`
	Password   string    `json:"password" validate:"required"`
	OTP        string    `json:"otp,omitempty"`
}

// Login verifies credentials for the requested role. Patients and doctors
// sign in with their email, admins with their username plus a TOTP code when
// one is enrolled. It returns the identity and a display name for the token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (auth.Identity, string, error) {
	ident := strings.TrimSpace(req.Identifier)
	switch req.Role {
	case auth.RolePatient:
		p, err := s.patients.GetByEmail(ctx, ident)
		if err != nil {
			return auth.Identity{}, "", credentialErr(err)
		}
		if !auth.CheckPassword(p.PasswordHash, req.Password) {
			return auth.Identity{}, "", ErrInvalidCredentials
		}
		if !p.Active() {
			return auth.Identity{}, "", ErrInactiveAccount
		}
		return auth.Identity{Role: auth.RolePatient, UserID: p.ID}, p.Name, nil

	case auth.RoleDoctor:
		d, err := s.doctors.GetByEmail(ctx, ident)
		if err != nil {
			return auth.Identity{}, "", credentialErr(err)
		}
		if !auth.CheckPassword(d.PasswordHash, req.Password) {
			return auth.Identity{}, "", ErrInvalidCredentials
		}
		if !d.Active {
			return auth.Identity{}, "", ErrInactiveAccount
		}
		return auth.Identity{Role: auth.RoleDoctor, UserID: d.ID}, d.Name, nil

	case auth.RoleAdmin:
		a, err := s.admins.GetByUsername(ctx, ident)
		if err != nil {
			return auth.Identity{}, "", credentialErr(err)
		}
		if !auth.CheckPassword(a.PasswordHash, req.Password) {
			return auth.Identity{}, "", ErrInvalidCredentials
		}
		if a.TOTPSecret != nil {
			if req.OTP == "" {
				return auth.Identity{}, "", ErrOTPRequired
			}
			if !auth.ValidateTOTP(req.OTP, *a.TOTPSecret) {
				return auth.Identity{}, "", ErrInvalidCredentials
			}
		}
		return auth.Identity{Role: auth.RoleAdmin, UserID: a.ID}, a.Username, nil
	}
	return auth.Identity{}, "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
}

// credentialErr hides whether the account exists.
func credentialErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidCredentials
	}
	return err
}
