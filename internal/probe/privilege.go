package probe

import (
	"errors"
	"os"
	"strings"
	"syscall"
)

// ErrPrivilege marks the fatal case where the OS refuses raw ICMP access.
// It is never retried; the monitor loop must not start (or must stop) when
// an error wraps it.
var ErrPrivilege = errors.New("raw ICMP requires elevated privileges")

// IsPrivilegeError reports whether err is a permission failure from the
// OS-level socket layer.
func IsPrivilegeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPrivilege) {
		return true
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied")
}

func wrapPrivilege(err error) error {
	if err != nil && IsPrivilegeError(err) && !errors.Is(err, ErrPrivilege) {
		return errors.Join(ErrPrivilege, err)
	}
	return err
}
