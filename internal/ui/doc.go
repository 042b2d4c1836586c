// Package ui is the Bubble Tea terminal interface of smashtrack.
//
// One root Model owns five screens: login (doubling as register), analyze,
// report, history and the local log viewer. Every move between screens goes
// through session.Guard, so protected screens fall back to login whenever the
// credential store is empty, including after a 401 cleared it mid-session.
// A one-second tick re-reads the report and history stores and re-applies
// the guard.
//
// The analyze screen runs the upload and analysis pipeline in a command with
// its own cancelable context. esc cancels it; a result that arrives after a
// cancel is dropped. When an analysis fails after the upload succeeded, f5
// resubmits the same media reference.
//
// Theme colors and key bindings follow the rest of the package: themes are
// named palettes cycled with T, and keyMap holds every binding. Screens with
// text inputs only react to ctrl bindings so letters reach the inputs.
package ui
