package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/trikot/pkg/invite"
	"github.com/matzehuels/trikot/pkg/theme"
)

var (
	formLabelStyle  = lipgloss.NewStyle().Foreground(colorGray).Width(8)
	formFocusStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	formValueStyle  = lipgloss.NewStyle().Foreground(colorWhite)
	formCursorStyle = lipgloss.NewStyle().Foreground(colorCyan)
	formErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

const formMaxNoteRunes = 280

// =============================================================================
// AnswersModel - Interactive answers form
// =============================================================================

const (
	fieldName = iota
	fieldAge
	fieldNote
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Age", "Note"}

// AnswersModel is the bubbletea model for entering a guest's answers. The
// theme preview under the form follows the note as it is typed.
type AnswersModel struct {
	Values    [fieldCount][]rune
	Focus     int
	Err       string
	Submitted bool
	Cancelled bool
}

// NewAnswersModel creates a form prefilled with a.
func NewAnswersModel(a invite.Answers) AnswersModel {
	var m AnswersModel
	m.Values[fieldName] = []rune(a.Name)
	m.Values[fieldAge] = []rune(a.Age)
	m.Values[fieldNote] = []rune(a.Note)
	return m
}

// Answers returns the current field values.
func (m AnswersModel) Answers() invite.Answers {
	return invite.Answers{
		Name: string(m.Values[fieldName]),
		Age:  string(m.Values[fieldAge]),
		Note: string(m.Values[fieldNote]),
	}
}

func (m AnswersModel) Init() tea.Cmd {
	return nil
}

func (m AnswersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.Cancelled = true
		return m, tea.Quit
	case tea.KeyTab, tea.KeyDown:
		m.Focus = (m.Focus + 1) % fieldCount
	case tea.KeyShiftTab, tea.KeyUp:
		m.Focus = (m.Focus + fieldCount - 1) % fieldCount
	case tea.KeyEnter:
		if m.Focus < fieldCount-1 {
			m.Focus++
			return m, nil
		}
		if err := m.Answers().Validate(); err != nil {
			m.Err = err.Error()
			return m, nil
		}
		m.Submitted = true
		return m, tea.Quit
	case tea.KeyBackspace:
		if v := m.Values[m.Focus]; len(v) > 0 {
			m.Values[m.Focus] = v[:len(v)-1]
		}
	case tea.KeyCtrlU:
		m.Values[m.Focus] = nil
	case tea.KeyRunes, tea.KeySpace:
		runes := key.Runes
		if key.Type == tea.KeySpace && len(runes) == 0 {
			runes = []rune{' '}
		}
		if m.Focus == fieldNote && len(m.Values[m.Focus])+len(runes) > formMaxNoteRunes {
			return m, nil
		}
		m.Values[m.Focus] = append(append([]rune(nil), m.Values[m.Focus]...), runes...)
		m.Err = ""
	}
	return m, nil
}

func (m AnswersModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Invitation Shirt"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("tab/↑/↓ move  ⏎ next/submit  ctrl+u clear  esc quit"))
	b.WriteString("\n\n")

	for i := range fieldCount {
		label := formLabelStyle.Render(fieldLabels[i])
		value := formValueStyle.Render(string(m.Values[i]))
		if i == m.Focus {
			label = formFocusStyle.Width(8).Render(fieldLabels[i])
			value += formCursorStyle.Render("▌")
		}
		fmt.Fprintf(&b, "%s %s\n", label, value)
	}

	b.WriteString("\n")
	th := theme.Build(string(m.Values[fieldNote]))
	var sw []string
	for _, l := range layerNames {
		sw = append(sw, swatch(th.Fills[l.id]))
	}
	pattern := StyleDim.Render("no pattern")
	if id, ok := th.ActivePattern(); ok {
		pattern = StyleDim.Render(id)
	}
	b.WriteString("Theme    " + strings.Join(sw, " ") + "  " + pattern + "\n")

	if m.Err != "" {
		b.WriteString("\n" + formErrorStyle.Render(m.Err) + "\n")
	}
	return b.String()
}

// runAnswersForm shows the form and returns the submitted answers. ok is
// false when the user quit.
func runAnswersForm(initial invite.Answers) (invite.Answers, bool, error) {
	final, err := tea.NewProgram(NewAnswersModel(initial)).Run()
	if err != nil {
		return invite.Answers{}, false, fmt.Errorf("answers form: %w", err)
	}
	m := final.(AnswersModel)
	if !m.Submitted {
		return invite.Answers{}, false, nil
	}
	return m.Answers(), true, nil
}
