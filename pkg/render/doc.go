// Package render turns a composited [scene.Scene] into a PNG artifact.
//
// # Overview
//
// Rendering goes through a [Surface], the staging area a backend paints
// into. Every backend implements the same protocol, so the synchronization
// rules live here once:
//
//   - [Synchronizer] waits until the mounted graphic is attached, every font
//     the overlay text needs is loaded at its exact size, and two paint
//     frames have passed after a forced layout read.
//   - [Rasterizer] mounts, settles and captures at a fixed density over an
//     opaque background. A capture without data is a terminal failure of
//     that export ([errors.ErrCodeCaptureFailed]); it is never retried here.
//
// # Backends
//
//   - [browser]: headless Chrome through go-rod; closest to what a phone shows
//   - [raster]: pure Go (oksvg, rasterx, x/image); no external processes
//   - [rsvg]: the rsvg-convert tool from librsvg
//
// A timed-out attach poll is not an error: the export continues and the
// report says so, since an imperfect capture beats hanging forever.
//
// [browser]: github.com/matzehuels/trikot/pkg/render/browser
// [raster]: github.com/matzehuels/trikot/pkg/render/raster
// [rsvg]: github.com/matzehuels/trikot/pkg/render/rsvg
package render
