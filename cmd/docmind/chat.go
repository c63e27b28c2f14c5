package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docmind/internal/services"
	"github.com/fyrsmithlabs/docmind/internal/tui"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat <file>",
	Short: "Chat with a document in the terminal",
	Long: `Open a full-screen chat over one document. The document is shown above
the answer; with sourcing enabled (ctrl+s) the passages behind each answer
are highlighted.

Type "/page N" to jump to a page. Logs are written only to logging.file.

Example:
  docmind chat report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	events := tui.NewEvents()
	defer events.Close()

	a, err := newApp(ctx, logFileOnly, services.WithObserver(events.Observe))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	files, err := a.importFiles(ctx, args)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(a.reg.RAG(), files[0], events),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}
