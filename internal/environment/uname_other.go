//go:build !unix

package environment

import "errors"

func hostUname() (Uname, error) {
	return Uname{}, errors.New("uname not supported on this platform")
}
