//go:build !race

package registration

func pinHashCost() int {
	return 14
}
