package directory

import (
	"sort"
	"strings"
	"time"
)

// Doctor maps to the doctor table.
type Doctor struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Specialty      string    `db:"specialty" json:"specialty"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	AvailableTimes []string  `db:"available_times" json:"available_times"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableIn reports whether the doctor has any slot in the given half of
// the day ("AM" before noon, "PM" from noon). An empty period matches all.
func (d *Doctor) AvailableIn(period string) bool {
	switch strings.ToUpper(period) {
	case "":
		return true
	case "AM":
		for _, t := range d.AvailableTimes {
			if t < "12:00" {
				return true
			}
		}
	case "PM":
		for _, t := range d.AvailableTimes {
			if t >= "12:00" {
				return true
			}
		}
	}
	return false
}

type PatientStatus string

const (
	PatientActive   PatientStatus = "active"
	PatientInactive PatientStatus = "inactive"
)

// Patient maps to the patient table.
type Patient struct {
	ID           int64         `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Email        string        `db:"email" json:"email"`
	Phone        string        `db:"phone" json:"phone"`
	Address      *string       `db:"address" json:"address,omitempty"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Status       PatientStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

func (p *Patient) Active() bool { return p.Status == PatientActive }

// Admin maps to the admin table.
type Admin struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TOTPSecret   *string   `db:"totp_secret" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DoctorFilter narrows doctor listings.
type DoctorFilter struct {
	Name       string // case-insensitive substring
	Specialty  string // exact, case-insensitive
	Period     string // "AM", "PM" or ""
	ActiveOnly bool
}

// normalizeTimes de-duplicates and sorts slot labels.
func normalizeTimes(times []string) []string {
	seen := make(map[string]bool, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
