package domain

import "time"

// Role represents an account role in the system
type Role string

const (
	RoleUser             Role = "user"
	RoleAdmin            Role = "admin"
	RoleSupplier         Role = "supplier"
	RoleFinanceManager   Role = "finance-manager"
	RoleInventoryManager Role = "inventory-manager"
	RoleOrderManager     Role = "order-manager"
)

// Roles lists every valid role
var Roles = []Role{
	RoleUser,
	RoleAdmin,
	RoleSupplier,
	RoleFinanceManager,
	RoleInventoryManager,
	RoleOrderManager,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// OTPPurpose says which operation may consume the code in an account's OTP slot
type OTPPurpose string

const (
	OTPPurposeTwoFactor     OTPPurpose = "two_factor"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTP lifetime and shape
const (
	OTPDigits   = 6
	OTPLifetime = 10 * time.Minute
)

// Ack is the acknowledgement returned by operations whose side effects are not reported
type Ack struct {
	Message string `json:"message"`
}
