// Package config loads and saves viewer preferences as YAML.
//
// A file has five optional sections; anything omitted keeps its default:
//
//	device:
//	  kind: devmem          # devmem or sim
//	  path: /dev/mem
//	  read_only: false
//	  op_timeout: 250ms
//	window:
//	  address: FF00D400     # hex, no prefix
//	  length: 256
//	refresh:
//	  enabled: false
//	  interval_seconds: 1.0
//	trace:
//	  path: session.ptrace
//	  accesses: false       # one event per byte read
//	  console: false        # mirror trace events to the operational log
//	sim:
//	  latency: 0s
//	  regions:
//	    - {start: FF00D000, size: 4096, pattern: addr}
//
// Only preferences are stored. Window contents and edit history are never
// written to disk.
package config
