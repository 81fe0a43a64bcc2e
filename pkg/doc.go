// Package pkg provides the libraries behind trikot, the invitation shirt
// generator.
//
// # Overview
//
// A guest answers three questions (name, age, a personal note). The note is
// hashed into a deterministic color theme, the theme and the answers are
// composed onto the shirt artwork, and the result is rasterized to PNG and
// delivered by share, download or open.
//
// # Architecture
//
//	Answers
//	   ↓
//	[theme]     note → seed → palette picks + pattern
//	   ↓
//	[scene]     template + theme + text overlay for a preset
//	   ↓
//	[render]    mount → settle (fonts, frames) → capture
//	   ↓
//	[dispatch]  share → download → open, with transient handles
//
// [pipeline] runs these stages with caching and a one-export-at-a-time
// guard. The CLI (internal/cli) and the HTTP service ([server]) both go
// through it.
//
// # Quick Start
//
//	r := pipeline.NewRunner(cache.NewMemoryCache(), nil, nil)
//	defer r.Close()
//	res, err := r.Export(ctx, pipeline.Options{
//	    Answers: invite.Answers{Name: "Mia", Age: "7", Note: "see you there"},
//	})
//	// res.Artifact.Data holds the PNG.
//
// # Packages
//
// Domain:
//   - [theme]: note normalization, FNV-1a seed, mulberry32 generator, picks
//   - [invite]: the answers and artifact naming
//   - [svgtree]: SVG parse, recolor, toggle, serialize
//   - [scene]: presets, text overlay, layout and markup
//   - [fonts]: font registry with embedded fallbacks
//   - [assets]: the embedded shirt template
//
// Export:
//   - [render]: surface protocol, synchronizer, rasterizer, previews
//   - [render/raster], [render/browser], [render/rsvg]: surfaces
//   - [dispatch]: delivery chain and handle stores
//   - [pipeline]: orchestration
//
// Infrastructure:
//   - [cache]: null, memory, file and redis backends
//   - [session]: answer sessions for the service and the CLI
//   - [config]: TOML settings
//   - [server]: HTTP routes
//   - [errors], [httputil], [observability], [buildinfo]
//
// [theme]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/theme
// [invite]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/invite
// [svgtree]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/svgtree
// [scene]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/scene
// [fonts]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/fonts
// [assets]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/assets
// [render]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/render
// [render/raster]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/render/raster
// [render/browser]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/render/browser
// [render/rsvg]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/render/rsvg
// [dispatch]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/dispatch
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/server
// [errors]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/trikot/pkg/buildinfo
package pkg
