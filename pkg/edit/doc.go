// Package edit implements the single-byte edit transaction.
//
// A Manager holds at most one live Request. Begin opens it for a cell of
// the current window, prefilled with the cell's value as two upper-case hex
// digits, and suspends periodic refresh. SetValue validates hex input with
// the same rules as address parsing, bounded to 00..FF; a rejected value
// never reaches the device. Commit writes the value through a Writer.
//
// Lifecycle:
//
//	Begin --> Pending --Commit ok--> Committed   (request closed, refresh resumed)
//	             |    --Commit err-> Failed      (request still live, retry allowed)
//	             +------Cancel-----> Cancelled   (request closed, refresh resumed)
//
// A failed commit keeps the request and its value so the caller can retry
// or cancel. Refresh stays suspended until the request closes.
package edit
