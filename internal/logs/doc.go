// Package logs reads the daemon log file with offset-based paging.
//
// A negative offset asks for the last N lines; a non-negative offset resumes
// reading where a previous call left off, which is how `hindsight logs -f`
// streams new lines over IPC without holding a connection open. Follow mode
// polls the file until new lines arrive or the caller's wait budget runs out.
package logs
