// Package simmem implements a simulated physical memory device.
//
// The simulator backs the viewer's -device sim mode and the test suites.
// It is a sparse address space made of regions; addresses outside every
// region fail with session.ErrAddressOutOfRange. Each region produces
// bytes from a pattern until written, after which the written value wins:
//
//	zero  every byte reads 0x00
//	fill  every byte reads Region.Fill
//	addr  every byte reads its address modulo 256
//
// Read-only regions reject writes with session.ErrWriteProtected.
//
// Faults can be injected for testing: an open error, per-address read or
// write errors, and a fixed latency per access.
package simmem
