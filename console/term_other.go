//go:build !linux && !darwin

package console

// MakeRaw is not supported on this platform. Keys are only read after Enter is pressed
func MakeRaw(int) (func() error, error) {
	return func() error { return nil }, nil
}
