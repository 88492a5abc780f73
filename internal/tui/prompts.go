package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// ErrInteractiveDisabled is returned when prompts cannot be shown
var ErrInteractiveDisabled = errors.New("interactive prompts are disabled")

// IsInteractive reports whether prompts can be shown: stdin and stderr are
// terminals and BACKPORT_NO_INTERACTIVE is not set.
func IsInteractive() bool {
	if os.Getenv("BACKPORT_NO_INTERACTIVE") != "" {
		return false
	}
	return isTerminal(os.Stdin) && isTerminal(os.Stderr)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// confirmModel is a simple yes/no confirmation prompt model
type confirmModel struct {
	prompt string
	choice bool
	done   bool
	err    error
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.err = errors.New("canceled")
			m.done = true
			return m, tea.Quit
		case tea.KeyRunes:
			switch strings.ToLower(string(msg.Runes)) {
			case "y", "yes":
				m.choice = true
				m.done = true
				return m, tea.Quit
			case "n", "no":
				m.choice = false
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	yesNo := "[y/N]"
	if m.choice {
		yesNo = "[Y/n]"
	}
	return lipgloss.NewStyle().Margin(1, 0).Render(fmt.Sprintf("%s %s", m.prompt, yesNo))
}

// PromptConfirm asks a yes/no question on the terminal
func PromptConfirm(prompt string, defaultValue bool) (bool, error) {
	return promptConfirm(os.Stdin, os.Stderr, prompt, defaultValue)
}

func promptConfirm(in io.Reader, out io.Writer, prompt string, defaultValue bool) (bool, error) {
	if !IsInteractive() {
		return false, ErrInteractiveDisabled
	}

	p := tea.NewProgram(confirmModel{prompt: prompt, choice: defaultValue}, tea.WithInput(in), tea.WithOutput(out))
	model, err := p.Run()
	if err != nil {
		return false, err
	}
	final, ok := model.(confirmModel)
	if !ok {
		return false, errors.New("unexpected model type")
	}
	if final.err != nil {
		return false, final.err
	}
	return final.choice, nil
}

// SessionChoice is the operator's answer when a fresh run finds a suspended session
type SessionChoice string

const (
	ChoiceContinue SessionChoice = "Continue the suspended backport"
	ChoiceDiscard  SessionChoice = "Discard it and start over"
	ChoiceCancel   SessionChoice = "Cancel"
)

// PromptSessionConflict asks what to do with a suspended session
func PromptSessionConflict(message string) (SessionChoice, error) {
	if !IsInteractive() {
		return ChoiceCancel, ErrInteractiveDisabled
	}

	var answer string
	prompt := &survey.Select{
		Message: message,
		Options: []string{string(ChoiceContinue), string(ChoiceDiscard), string(ChoiceCancel)},
		Default: string(ChoiceCancel),
	}
	if err := survey.AskOne(prompt, &answer, survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)); err != nil {
		return ChoiceCancel, err
	}
	return SessionChoice(answer), nil
}
