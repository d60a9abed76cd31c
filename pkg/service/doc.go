// Package service ties the memory session, window reader, refresh
// scheduler and edit transaction into one viewer backend.
//
// A Service owns all mutable viewer state in an explicit AppState: the
// address text and base, the window length and refresh policy, the last
// window read, the live edit and the writes not yet confirmed by a read.
// Front ends drive it through methods and observe it through Snapshot and
// OnEvent.
//
// Example usage:
//
//	svc, err := service.New(devmem.New(devmem.Config{}), service.DefaultConfig())
//	if err := svc.Start(ctx); err != nil {
//		log.Printf("device not open: %v", err)
//	}
//	defer svc.Stop()
//
//	svc.SetAddress(ctx, "FF00D400")
//	svc.BeginEdit(5)
//	svc.SetEditValue("AB")
//	svc.CommitEdit(ctx)
//
// # Serialization
//
// Refresh passes and commits are mutually exclusive: both hold the
// service's I/O lock for their whole duration. While an edit is live the
// scheduler is suspended and manual refresh is refused with
// edit.ErrEditInProgress, so a read pass never races the pending write.
//
// # Unconfirmed Writes
//
// A committed value is shown marked window.MarkUnconfirmed until a later
// refresh reads that byte back. If the read fails the written value stays
// on display, still unconfirmed, instead of being masked by the failure. If
// the read returns a different value an EventWriteMismatch is emitted and
// the read value wins.
//
// # Events
//
// Handlers registered with OnEvent run synchronously on the goroutine that
// caused the event, outside the state lock. Events raised by a window pass
// or a commit are delivered while that operation still holds the I/O lock,
// so handlers must not block and must not call Refresh, CommitEdit,
// SetAddress or Open.
package service
