package raster

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/trikot/pkg/assets"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/svgtree"
	"github.com/matzehuels/trikot/pkg/theme"
)

func compose(t *testing.T, answers invite.Answers) *scene.Scene {
	t.Helper()
	tpl, err := svgtree.Parse(bytes.NewReader(assets.Template()))
	require.NoError(t, err)
	p, err := scene.Lookup(scene.PresetMobile)
	require.NoError(t, err)
	return scene.Compose(tpl, answers, p, theme.Build(answers.Note))
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func requireColor(t *testing.T, img image.Image, x, y int, want string) {
	t.Helper()
	c, err := scene.ParseColor(want)
	require.NoError(t, err)
	r, g, b, _ := img.At(x, y).RGBA()
	got := [3]int{int(r >> 8), int(g >> 8), int(b >> 8)}
	exp := [3]int{int(c.R), int(c.G), int(c.B)}
	for i := range got {
		require.InDelta(t, exp[i], got[i], 2, "pixel (%d,%d) = %v, want %s", x, y, got, want)
	}
}

func TestEmptyNoteExport(t *testing.T) {
	sc := compose(t, invite.Answers{Name: "Mia", Age: "30", Note: ""})
	_, on := sc.Theme.ActivePattern()
	require.False(t, on)

	surface := New(fonts.NewDefaultRegistry(), nil)
	defer surface.Close()

	a, err := render.NewRasterizer(nil).Rasterize(context.Background(), surface, sc)
	require.NoError(t, err)
	require.NotEmpty(t, a.Data)
	require.Equal(t, render.MediaTypePNG, a.MediaType)

	img := decode(t, a.Data)
	require.Equal(t, 430*3, img.Bounds().Dx())
	require.Equal(t, 932*3, img.Bounds().Dy())

	// Template is fitted at scale 1290/1080 and centered vertically.
	requireColor(t, img, 0, 0, scene.DefaultBackground)
	requireColor(t, img, 1289, 2795, scene.DefaultBackground)
	requireColor(t, img, 645, 1445, "#ffffff")
	requireColor(t, img, 358, 1445, sc.Theme.Fills[theme.LayerSide])
}

func TestCaptureDrawsText(t *testing.T) {
	ctx := context.Background()
	opts := render.CaptureOptions{Width: 430, Height: 932, Density: 1, Background: scene.DefaultBackground}
	capture := func(answers invite.Answers) []byte {
		s := New(nil, nil)
		require.NoError(t, s.Mount(ctx, compose(t, answers)))
		data, err := s.Capture(ctx, opts)
		require.NoError(t, err)
		return data
	}

	plain := capture(invite.Answers{Name: "", Age: "", Note: "x"})
	named := capture(invite.Answers{Name: "Mia", Age: "30", Note: "x"})
	require.NotEqual(t, plain, named)
}

func TestSurfaceProtocol(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)

	ok, err := s.Attached(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Error(t, s.Layout(ctx))
	_, err = s.Capture(ctx, render.CaptureOptions{Width: 1, Height: 1, Density: 1})
	require.Error(t, err)

	sc := compose(t, invite.Answers{Name: "Mia", Age: "30", Note: "hi there"})
	require.NoError(t, s.Mount(ctx, sc))
	ok, err = s.Attached(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	for _, req := range sc.FontRequests() {
		require.NoError(t, s.LoadFont(ctx, req))
	}
	require.Error(t, s.LoadFont(ctx, fonts.Request{Family: "Comic", Size: 10}))

	ticks := 0
	s.Ticker = func(context.Context) error { ticks++; return nil }
	require.NoError(t, s.NextFrame(ctx))
	require.Equal(t, 1, ticks)

	require.NoError(t, s.Layout(ctx))
	require.NotEmpty(t, s.lines)
}

func TestPrepare(t *testing.T) {
	tpl, err := svgtree.ParseString(`<svg><g id="a"><path fill="rgba(255, 255, 255, 0.6)" style="stroke: #000; fill: rgba(0, 0, 0, 0)"/><rect fill="#ff0037"/></g></svg>`)
	require.NoError(t, err)

	out := Prepare(tpl)
	var path, rect *svgtree.Node
	out.Walk(func(n *svgtree.Node) bool {
		switch n.Tag {
		case "path":
			path = n
		case "rect":
			rect = n
		}
		return true
	})

	fill, _ := path.Attr("fill")
	require.Equal(t, "#ffffff", fill)
	opacity, _ := path.Attr("fill-opacity")
	require.Equal(t, "0.6", opacity)
	style, _ := path.Attr("style")
	require.Equal(t, "stroke: #000; fill: #000000; fill-opacity: 0", style)

	fill, _ = rect.Attr("fill")
	require.Equal(t, "#ff0037", fill)
	_, ok := rect.Attr("fill-opacity")
	require.False(t, ok)

	// Input is untouched.
	require.True(t, strings.Contains(tpl.String(), "rgba(255, 255, 255, 0.6)"))
}
