// Package toolproc supervises tool-provider worker processes and talks to
// them over newline-delimited JSON on their standard streams.
//
// Each worker is started by the Supervisor and owned by a Server. The
// Server's Channel multiplexes concurrent calls over the worker's stdin
// and stdout: a writer goroutine owns stdin, a reader goroutine owns
// stdout, and responses are matched to callers by correlation id.
// Readiness is announced on stderr, which is drained into the logger for
// the lifetime of the process.
//
// Wire format, one JSON object per line:
//
//	-> {"id":1,"method":"tools/call","params":{"name":"live_items","arguments":{"query":"q"}}}
//	<- {"id":1,"result":{"items":[...]}}
//	<- {"id":2,"error":{"message":"unknown tool"}}
package toolproc
