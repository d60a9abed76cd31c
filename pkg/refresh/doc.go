// Package refresh implements the periodic window refresh.
//
// A Scheduler runs one goroutine driving a time.Ticker. Ticks run serially
// on that goroutine, so a tick never overlaps the previous one. A tick that
// outlasts the interval causes the missed ticks to be skipped, never queued.
//
// # Policy
//
// A Policy is {Enabled, Interval}. The interval must lie in
// [MinInterval, MaxInterval]. PolicyFromSeconds rounds user input to the
// 0.1 second step the viewer exposes.
//
// # Suspension
//
// Suspend and Resume are counted. While the count is non-zero every tick is
// skipped and counted in Stats.Skipped. The edit transaction suspends the
// scheduler so a read pass never races a pending write.
//
// # Cancellation
//
// Stop and Reconfigure cancel the running loop and wait for it to exit.
// When they return no tick is running and none will fire until the
// scheduler is started again. They must not be called from inside a tick:
// the waiting would never finish. The Context variants detect this through
// the context passed to the tick and return ErrCalledFromTick instead.
package refresh
