//go:build race

package registration

import "golang.org/x/crypto/bcrypt"

func pinHashCost() int {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	return bcrypt.DefaultCost
}
