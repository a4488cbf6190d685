package domain

// BootstrapData describes the super admin created on first start.
type BootstrapData struct {
	Email    string
	Name     string
	Password string
}
