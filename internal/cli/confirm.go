package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is the bubbletea model for a yes/no question.
type confirmModel struct {
	question string
	answer   bool
	decided  bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			m.answer = true
			m.decided = true
			return m, tea.Quit
		case "n", "N", "q", "esc", "ctrl+c":
			m.decided = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.decided {
		return ""
	}
	return StyleTitle.Render(m.question) + " " + StyleDim.Render("(y/n)") + "\n"
}

// confirmSuggestion asks whether to use the suggested package name instead.
// With --yes, or when stdin is not a terminal, the suggestion is accepted
// without prompting so piped invocations never hang.
func (c *CLI) confirmSuggestion(ctx context.Context, name string, autoYes bool) (bool, error) {
	if autoYes || !stdinIsTerminal() {
		printInfo("Assuming '%s'", name)
		return true, nil
	}

	model := confirmModel{question: fmt.Sprintf("Did you mean '%s'?", name)}
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := program.Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).answer, nil
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
