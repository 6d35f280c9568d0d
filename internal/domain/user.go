package domain

import "time"

// Role governs authorization: admin bypasses ownership checks, operador may
// only mutate chamados it owns, viewer is read-only.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperador Role = "operador"
	RoleViewer   Role = "viewer"
)

// User is an authenticated identity of the support workflow.
type User struct {
	ID              string
	Nome            string
	Email           string
	PasswordHash    string
	Operador        string
	Role            Role
	Carteiras       []string
	Ativo           bool
	DataCriacao     time.Time
	DataUltimoLogin *time.Time
}

// Profile is the public view of a user, safe to return to callers. It never
// carries the credential hash.
type Profile struct {
	ID        string   `json:"id"`
	Nome      string   `json:"nome"`
	Email     string   `json:"email"`
	Operador  string   `json:"operador"`
	Role      Role     `json:"role"`
	Carteiras []string `json:"carteiras"`
}

// PublicProfile projects the user onto its public view.
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:        u.ID,
		Nome:      u.Nome,
		Email:     u.Email,
		Operador:  u.Operador,
		Role:      u.Role,
		Carteiras: u.Carteiras,
	}
}
