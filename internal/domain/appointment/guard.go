package appointment

import "github.com/clinic/clinic/internal/platform/auth"

// authorize is the single access check for every engine operation. Admins
// pass unconditionally. Otherwise the caller's role must be in allowed, and
// patients and doctors must own a (by PatientID or DoctorID respectively).
func authorize(caller auth.Identity, a *Appointment, allowed ...auth.Role) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if caller.IsAdmin() {
		return nil
	}
	permitted := false
	for _, r := range allowed {
		if r == caller.Role {
			permitted = true
			break
		}
	}
	if !permitted {
		return ErrUnauthorized
	}
	switch caller.Role {
	case auth.RolePatient:
		if a.PatientID != caller.UserID {
			return ErrUnauthorized
		}
	case auth.RoleDoctor:
		if a.DoctorID != caller.UserID {
			return ErrUnauthorized
		}
	}
	return nil
}
