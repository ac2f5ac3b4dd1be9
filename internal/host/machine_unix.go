//go:build linux || darwin || freebsd || netbsd || openbsd

package host

import "golang.org/x/sys/unix"

func machine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Machine[:])
}
