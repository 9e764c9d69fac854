package serial

// Raw ioctl request numbers for the termios calls the transport needs.
// These are Linux ABI constants, not teacher- or device-specific.
var (
	tcgets = uintptr(0x5401)
	tcsets = uintptr(0x5402)

	tcsbrk = uintptr(0x5409) // arg=1 drains output (TCDRAIN behavior)

	tcflsh = uintptr(0x540B)
)
