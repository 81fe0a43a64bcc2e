package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/trikot/pkg/theme"
)

type themeOpts struct {
	explain bool
	json    bool
}

// themeCommand shows the theme a note derives to, without rendering.
func (c *CLI) themeCommand() *cobra.Command {
	var opts themeOpts

	cmd := &cobra.Command{
		Use:   "theme [note]",
		Short: "Show the colors a note produces",
		Long: `Show the shirt colors and the pattern a note derives to.

The note is trimmed before hashing, so surrounding whitespace never changes
the result. Quote notes that contain spaces.`,
		Example: `  trikot theme "see you on the dance floor"
  trikot theme --explain hi`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := ""
			if len(args) == 1 {
				note = args[0]
			}
			return c.runTheme(note, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.explain, "explain", false, "show the seed and sub-seed trail")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the theme as JSON")
	return cmd
}

func (c *CLI) runTheme(note string, opts themeOpts) error {
	th := theme.Build(note)
	a := theme.Analyze(note)

	if opts.json {
		v := any(th)
		if opts.explain {
			v = struct {
				Theme    theme.Theme    `json:"theme"`
				Analysis theme.Analysis `json:"analysis"`
			}{th, a}
		}
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	fmt.Fprintln(c.out, StyleTitle.Render("Theme")+" "+StyleDim.Render(fmt.Sprintf("%q", a.Normalized)))
	fmt.Fprintln(c.out, themeTable(th))

	if opts.explain {
		printNewline(c.out)
		c.printKeyValue("seed", fmt.Sprintf("%d (0x%08x)", a.Seed, a.Seed))
		c.printKeyValue("clean length", fmt.Sprintf("%d (pattern above %d)", a.CleanLength, theme.PatternThreshold))
		names := make([]string, 0, len(a.SubSeeds))
		for name := range a.SubSeeds {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c.printKeyValue(name, fmt.Sprintf("%d", a.SubSeeds[name]))
		}
		state := "off"
		if a.PatternOn {
			state = "on"
		}
		c.printKeyValue("pattern", fmt.Sprintf("#%d %s", a.PatternIndex+1, state))
	}

	if strings.TrimSpace(note) == "" {
		printNewline(c.out)
		c.printNextStep("Try a note", appName+` theme "see you there"`)
	}
	return nil
}
