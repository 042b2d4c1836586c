// Package upload turns a local clip into a MediaReference.
//
// Stage.Upload validates the file and optional trim window on the client,
// then streams a multipart body to the backend without buffering the media
// in memory. Stage.Prepare performs the same checks for provider mode, where
// the clip never leaves the machine until analysis.
package upload
