// Package analysis submits media for analysis and turns whatever comes back
// into a canonical Report.
//
// Stage.Analyze is a small state machine. It submits in ModeFull; if and
// only if that attempt fails with provider overload it submits once more in
// ModeDegraded. Any other failure, or a failed degraded attempt, ends the
// run with a *FailedError carrying the attempt trail. A successful payload
// is passed through Normalize, which never fails, and the report is written
// to the ReportWriter unless the context was canceled first.
//
// Two submitters exist: BackendSubmitter asks the backend API to analyze an
// uploaded video, ProviderSubmitter calls the generative provider directly.
package analysis
