package rsvg

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/trikot/pkg/assets"
	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/render"
	"github.com/matzehuels/trikot/pkg/scene"
	"github.com/matzehuels/trikot/pkg/svgtree"
	"github.com/matzehuels/trikot/pkg/theme"
)

func TestArgs(t *testing.T) {
	got := Args(render.CaptureOptions{Density: 3, Background: "#f1f2f2"})
	require.Equal(t, []string{"-f", "png", "-z", "3.00", "-b", "#f1f2f2"}, got)

	got = Args(render.CaptureOptions{Density: 1.5})
	require.Equal(t, []string{"-f", "png", "-z", "1.50"}, got)
}

func TestRasterize(t *testing.T) {
	if _, err := exec.LookPath(Binary); err != nil {
		t.Skip("rsvg-convert not installed")
	}
	s, err := New(nil, nil)
	require.NoError(t, err)
	defer s.Close()

	tpl, err := svgtree.Parse(bytes.NewReader(assets.Template()))
	require.NoError(t, err)
	p, err := scene.Lookup(scene.PresetMobile)
	require.NoError(t, err)
	answers := invite.Answers{Name: "Mia", Age: "30", Note: "disco"}
	sc := scene.Compose(tpl, answers, p, theme.Build(answers.Note))

	a, err := render.NewRasterizer(nil).Rasterize(context.Background(), s, sc)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(a.Data, []byte("\x89PNG")))
}
