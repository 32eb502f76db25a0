//go:build linux

package speed

import "golang.org/x/sys/unix"

// Ospeed reads the encoded output speed of the terminal open on fd. The
// CBAUD bits of the termios Cflag are exactly the ospeed encoding. A
// descriptor that is not a terminal yields 0; that is not an error.
func Ospeed(fd uintptr) int {
	tio, err := unix.IoctlGetTermios(int(fd), unix.TCGETS)
	if err != nil {
		return 0
	}
	return int(tio.Cflag & unix.CBAUD)
}
