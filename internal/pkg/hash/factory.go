package hash

import "fmt"

// New selects a Hash implementation by driver name. cost only applies to
// bcrypt; argon2id uses its own fixed parameters.
func New(driver string, cost int, pepper string) (Hash, error) {
	switch driver {
	case "", "bcrypt":
		return NewBcrypt(cost, pepper), nil
	case "argon2id":
		return NewArgon2id(pepper), nil
	default:
		return nil, fmt.Errorf("hash: unknown driver %q", driver)
	}
}
