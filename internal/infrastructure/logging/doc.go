// Package logging provides structured logging for sdrlink.
//
// It wraps log/slog with default service and version fields. Output goes to
// stdout, stderr, or a size-rotated file:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "/var/log/sdrlink/sdrlink.log"
//	    max_size: 50     # megabytes
//	    max_backups: 5
//
// Never log JWT secrets or broker passwords.
package logging
