// Package state holds the values shared between the pipeline, the history
// poller and the UI.
//
// Store is the Report Store: one slot holding the current canonical report.
// The analysis stage is its only writer; readers take Snapshot copies and
// never observe a report that is half written, because Set swaps the whole
// value under the lock. Before the first write, Report returns the zero
// report (level "-" and no suggestions).
//
// HistoryStore keeps the latest history page for the poller. A failed poll
// keeps the previous page and records the error, so the UI always has the
// last good data to show alongside the failure:
//
//	store.Update(&page, nil)  // replace page, clear error
//	store.Update(nil, err)    // keep page, record err, count failure
//
// Both stores copy slices on the way in and out and are safe to use from
// their zero value.
package state
