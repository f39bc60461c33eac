//go:build !linux

package affinity

// Pin is unavailable off Linux; callers treat the error as a non-fatal
// degradation and run unpinned.
func Pin(cpu int) error {
	return ErrUnsupported
}
