package session

// Device is the platform transport to physical memory.
//
// Implementations report failures by wrapping the session error sentinels
// (ErrAddressOutOfRange, ErrWriteProtected, ...). Unknown errors are treated
// as ErrIO. Device methods are never called concurrently by a Session.
type Device interface {
	// Open acquires the privileged handle.
	Open() error

	// Peek reads one byte at an absolute physical address.
	Peek(addr uint64) (uint8, error)

	// Poke writes one byte at an absolute physical address.
	Poke(addr uint64, value uint8) error

	// Close releases the handle.
	Close() error
}
