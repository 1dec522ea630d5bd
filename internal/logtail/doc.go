// Package logtail reads and formats the client's own log file.
//
// The client writes zerolog JSON lines. Read returns the last N raw lines
// using a single pass and a ring buffer, so large files are never loaded
// whole. Tail decodes those lines into entries; Format renders an entry as
// a compact, colored line for the terminal:
//
//	2025-10-08 21:01:05 INFO [clinic] token refreshed
//	2025-10-08 21:01:09 WARN [clinic] refresh rejected status=401
//
// Lines that are not JSON (for example a truncated write) are passed
// through unchanged. A missing log file is not an error.
package logtail
