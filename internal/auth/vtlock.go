package auth

import (
	"os"

	"golang.org/x/sys/unix"
)

// VT ioctl request codes from <linux/vt.h>; x/sys/unix does not export them.
const (
	vtLockSwitch   = 0x560b
	vtUnlockSwitch = 0x560c
)

// lockVTSwitch disables virtual-terminal switching on the controlling TTY
// and returns the release function. The lock prevents a console switch from
// stealing input while the provider holds the secret.
func lockVTSwitch() (func(), error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.IoctlSetInt(int(f.Fd()), vtLockSwitch, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unix.IoctlSetInt(int(f.Fd()), vtUnlockSwitch, 0)
		_ = f.Close()
	}, nil
}
