package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docmind/internal/rag"
)

var askSourcing bool

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVarP(&askSourcing, "sourcing", "s", false, "locate the passages the answer is based on")
}

var askCmd = &cobra.Command{
	Use:   "ask <file> <question...>",
	Short: "Ask one question about a document",
	Long: `Import a document and ask a single question about it. The answer is
streamed to stdout as it is generated. Logs go to stderr.

With --sourcing, the passages of the document that support the answer are
printed after it.

Examples:
  docmind ask report.pdf "What was the revenue in 2023?"
  docmind ask --sourcing notes.md who approved the budget`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, logStderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	files, err := a.importFiles(ctx, args[:1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	q := rag.Query{
		Question: strings.Join(args[1:], " "),
		Document: files[0],
		Sourcing: askSourcing,
	}
	ans, err := a.reg.RAG().Ask(ctx, q, func(tok string) { fmt.Fprint(out, tok) })
	if errors.Is(err, rag.ErrNoRelevantContext) {
		fmt.Fprintln(out, rag.NoInformation)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	if !askSourcing {
		return nil
	}
	if len(ans.Spans) == 0 {
		fmt.Fprintln(out, "\nNo citations located.")
		return nil
	}
	fmt.Fprintf(out, "\nCitations (%d):\n", len(ans.Spans))
	for i, s := range ans.Spans {
		fmt.Fprintf(out, "  [%d] %q\n", i+1, s.Text)
	}
	return nil
}
