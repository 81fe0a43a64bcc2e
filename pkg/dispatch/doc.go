// Package dispatch delivers a finished artifact to the user.
//
// A [Dispatcher] tries channels in a fixed order and absorbs their
// failures: native sharing first, then a download, then opening a
// transient handle to the image. Only when every channel failed does
// [Dispatcher.Dispatch] return [errors.ErrCodeDispatchFailed].
//
// Handles are transient. Each is revoked after the grace window by a timer,
// never synchronously, so a viewer that opened it late still gets the
// bytes. [Dispatcher.Close] revokes what is left at shutdown.
//
// Channels:
//
//   - [WebhookSharer]: multipart POST to a configured endpoint
//   - [FileSaver]: writes into a directory and verifies the result
//   - [SystemOpener]: xdg-open, open or rundll32
//   - [QROpener]: prints a terminal QR code of the handle URL
//
// Handle stores: [TempFileHandles] for the CLI, [CacheHandles] for the
// HTTP service.
package dispatch
