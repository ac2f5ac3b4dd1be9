//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package host

func machine() string {
	return ""
}
