package domain

import "fmt"

// Account is one credential pair bound to the panel it logs into.
type Account struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Panel    string `json:"panel" yaml:"panel"` // hostname, e.g. "panel7.example.net"
}

// LoginURL returns the panel's login page.
func (a Account) LoginURL() string {
	return fmt.Sprintf("https://%s/login/?next=/", a.Panel)
}
