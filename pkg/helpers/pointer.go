package helpers

// Ptr returns a pointer to a copy of val. Optional model fields (credit limit,
// due day, end date) are pointers, and literals cannot be addressed directly.
func Ptr[T any](val T) *T {
	return &val
}
