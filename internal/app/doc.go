// Package app is the composition root of smashtrack.
//
// NewDeps wires configuration, the credential store, the request gateway,
// the upload and analysis stages, the report store and the history client
// into one object graph. Run picks a subcommand from the arguments and
// executes it against that graph:
//
//	smashtrack login -u NAME -p PASSWORD
//	smashtrack register -u NAME -p PASSWORD [-nickname N] [-email E]
//	smashtrack logout
//	smashtrack profile
//	smashtrack analyze [-trim START:END] VIDEO
//	smashtrack analyze -media ID
//	smashtrack report [-share] ANALYSIS_ID
//	smashtrack history [-page N] [-size N] [-sort FIELD] [-order asc|desc]
//	smashtrack logs [-n LINES] [-raw]
//	smashtrack [tui]
//
// The TUI restores the stored session, then starts a background poller that
// keeps the history store fresh. Failed polls back off exponentially up to
// maxBackoff. Metrics are flushed to the configured textfile on exit.
package app
