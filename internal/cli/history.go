package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaowei-guan/pigeon/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Config string // pigeon.toml path
	DB     string // ledger path
	Limit  int    // number of runs listed
	Run    string // show one run in detail
}

// RunDetail is a run with everything recorded under it.
type RunDetail struct {
	Run       store.Run        `json:"run"`
	Artifacts []store.Artifact `json:"artifacts"`
	Messages  []MessageSummary `json:"messages"`
}

// MessageSummary is one recorded exchange without its payloads.
type MessageSummary struct {
	Seq         int64  `json:"seq"`
	Channel     string `json:"channel"`
	RequestSize int    `json:"request_size"`
	ReplySize   int    `json:"reply_size"`
	Error       string `json:"error,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation and test runs",
		Long: `List the runs recorded in the ledger, newest first.

With --run, show one run with the files it generated or the channel
exchanges it recorded.

Examples:
  pigeon history
  pigeon history --db .pigeon/ledger.db --limit 5
  pigeon history --run 0192f6a4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to pigeon.toml")
	cmd.Flags().StringVar(&opts.DB, "db", "", "ledger database (overrides [store].db)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run in detail")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath := opts.DB
	if dbPath == "" {
		cfg, err := loadConfig(opts.Config)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		dbPath = cfg.DBPath()
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "no ledger configured (set [store].db or pass --db)", nil)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("ledger not found: %s", dbPath), nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	if opts.Run != "" {
		return showRun(formatter, cmd, st, opts.Run)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s %4d  %-8s %-36s %s\n", statusMark(r.Status), r.Seq, r.Kind, r.ID, r.Label)
		if r.Error != "" {
			fmt.Fprintf(formatter.Writer, "        %s\n", r.Error)
		}
	}
	return nil
}

func showRun(f *OutputFormatter, cmd *cobra.Command, st *store.Store, id string) error {
	ctx := cmd.Context()

	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("run %s not found", id), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	artifacts, err := st.ReadArtifacts(ctx, id)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	messages, err := st.ReadMessages(ctx, id)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	detail := RunDetail{Run: run, Artifacts: artifacts, Messages: make([]MessageSummary, len(messages))}
	for i, m := range messages {
		detail.Messages[i] = MessageSummary{
			Seq:         m.Seq,
			Channel:     m.Channel,
			RequestSize: len(m.Request),
			ReplySize:   len(m.Reply),
			Error:       m.Error,
		}
	}

	if f.JSON() {
		return f.Success(detail)
	}

	w := f.Writer
	fmt.Fprintf(w, "%s %s run %s (#%d)\n", statusMark(run.Status), run.Kind, run.ID, run.Seq)
	fmt.Fprintf(w, "  label:       %s\n", run.Label)
	fmt.Fprintf(w, "  prefix:      %s\n", run.Prefix)
	fmt.Fprintf(w, "  fingerprint: %s\n", run.Fingerprint)
	fmt.Fprintf(w, "  generator:   v%s\n", run.GeneratorVersion)
	if run.Error != "" {
		fmt.Fprintf(w, "  error:       %s\n", run.Error)
	}
	for _, a := range detail.Artifacts {
		fmt.Fprintf(w, "  %-7s %s (%d bytes, %s)\n", a.Backend, a.Path, a.Size, a.Hash)
	}
	for _, m := range detail.Messages {
		line := fmt.Sprintf("  [%d] %s", m.Seq, m.Channel)
		if m.Error != "" {
			line += ": " + m.Error
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func statusMark(s store.RunStatus) string {
	switch s {
	case store.StatusOK:
		return okMark()
	case store.StatusFailed:
		return failMark()
	default:
		return warnMark()
	}
}
