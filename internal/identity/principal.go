package identity

import "context"

// Principal is the authenticated caller resolved to a user and its role profile.
// It is built once per request and passed explicitly to the booking services.
type Principal struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	PatientID string `json:"patientId,omitempty"`
	DoctorID  string `json:"doctorId,omitempty"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleStaffAdmin
}

func (p *Principal) HasPatientProfile() bool {
	return p != nil && p.PatientID != ""
}

func (p *Principal) HasDoctorProfile() bool {
	return p != nil && p.DoctorID != ""
}

type ctxKey string

const principalKey ctxKey = "toothdoctor.principal"

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal if present.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil && p.UserID != ""
}
