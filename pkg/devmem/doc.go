// Package devmem implements session.Device over a character device that
// exposes physical memory at file offsets, such as Linux /dev/mem.
//
// Each access is a single-byte pread or pwrite at the physical address.
// The handle is opened with O_SYNC so writes are not buffered by the page
// cache. If read-write access is denied the device falls back to read-only
// and every Poke fails with session.ErrWriteProtected.
//
// Errors from the kernel are mapped onto the session error taxonomy:
//
//	open   EACCES, EPERM              -> ErrPermissionDenied
//	open   ENOENT, ENODEV, ENXIO      -> ErrDeviceUnavailable
//	read   EFAULT, EINVAL, ENXIO, EPERM, short read -> ErrAddressOutOfRange
//	write  EFAULT, EINVAL, ENXIO      -> ErrAddressOutOfRange
//	write  EPERM, EROFS, EBADF        -> ErrWriteProtected
//	other                             -> ErrIO
//
// On platforms other than Linux, Open always fails with
// session.ErrDeviceUnavailable.
package devmem
