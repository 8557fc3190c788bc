package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xiaowei-guan/pigeon/channel"
	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/backend/dart"
	"github.com/xiaowei-guan/pigeon/internal/backend/golang"
	"github.com/xiaowei-guan/pigeon/internal/backend/kotlin"
	"github.com/xiaowei-guan/pigeon/internal/config"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Config string   // pigeon.toml path
	Input  string   // input directory override
	Only   []string // backend selection override
	Prefix string   // channel prefix override
	DB     string   // ledger path override
	Check  bool     // report stale files without writing
}

// File statuses in a GenerateReport.
const (
	FileWritten   = "written"
	FileUnchanged = "unchanged"
	FileStale     = "stale"
)

// GenerateReport describes one generate invocation.
type GenerateReport struct {
	Fingerprint string          `json:"fingerprint"`
	RunID       string          `json:"run_id,omitempty"`
	Files       []GeneratedFile `json:"files"`
}

// GeneratedFile is one output file of a GenerateReport.
type GeneratedFile struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	Size    int64  `json:"size"`
	Status  string `json:"status"`
	// Edited is set when the file on disk no longer matches what the
	// ledger recorded for it.
	Edited bool `json:"edited,omitempty"`
}

// Registry returns every available backend in generation order.
func Registry() *backend.Registry {
	return backend.NewRegistry(dart.New(), kotlin.New(), golang.New())
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate bindings for every configured backend",
		Long: `Generate Dart, Kotlin and Go bindings from the API descriptions of a
project.

Settings come from pigeon.toml, looked up from the current directory
upwards unless --config is given. Flags override the file. Backends run
in parallel; files whose content is unchanged are not rewritten. With a
ledger configured, every run and its outputs are recorded.

Exit codes:
  0 - Files generated (or up to date with --check)
  1 - Validation or generation failed, or files are stale with --check
  2 - Command error (bad config, unreadable input, etc.)

Examples:
  pigeon generate
  pigeon generate --only go --input ./pigeons
  pigeon generate --check`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to pigeon.toml")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input directory (overrides [input].dir)")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "backends to generate (dart,kotlin,go)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "channel name prefix (overrides [channel].prefix)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "ledger database (overrides [store].db)")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "fail if any file is out of date instead of writing")

	return cmd
}

// loadConfig reads the explicit config file, or the nearest pigeon.toml,
// or falls back to defaults rooted at the working directory.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	found, ok, err := config.Find(".")
	if err != nil {
		return nil, err
	}
	if ok {
		return config.Load(found)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Default(wd), nil
}

func runGenerate(ctx context.Context, opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if cfg.Path != "" {
		formatter.VerboseLog("Using %s", cfg.Path)
	}

	input := cfg.InputDir()
	if opts.Input != "" {
		input = opts.Input
	}
	loaded, err := loadDocument(formatter, input)
	if err != nil {
		return err
	}
	doc := loaded.Document

	names := cfg.Backends()
	if len(opts.Only) > 0 {
		names = opts.Only
	}
	backends, err := Registry().Select(names)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	planOpts := cfg.PlanOptions()
	if opts.Prefix != "" {
		planOpts.Prefix = opts.Prefix
	}

	// Backends are independent; results are kept by index so output order
	// does not depend on scheduling.
	results := make([][]backend.File, len(backends))
	g, _ := errgroup.WithContext(ctx)
	for i, b := range backends {
		formatter.VerboseLog("Generating %s", b.Name())
		g.Go(func() error {
			files, err := backend.Generate(b, doc, planOpts, cfg.Options(b.Name()))
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGenerate, err.Error(), nil)
	}

	fp, err := doc.Fingerprint()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGenerate, err.Error(), nil)
	}
	report := &GenerateReport{Fingerprint: fp, Files: []GeneratedFile{}}

	var ledger *store.Store
	dbPath := cfg.DBPath()
	if opts.DB != "" {
		dbPath = opts.DB
	}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		ledger, err = store.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		defer ledger.Close()
	}

	if ledger != nil && !opts.Check {
		prefix := planOpts.Prefix
		if prefix == "" {
			prefix = channel.DefaultPrefix
		}
		run, err := ledger.BeginRun(ctx, doc, store.Run{
			Kind:   store.RunGenerate,
			Label:  strings.Join(backendNames(backends), ","),
			Prefix: prefix,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		report.RunID = run.ID
	}

	writeErr := writeOutputs(ctx, cfg, ledger, opts.Check, backends, results, report)
	if report.RunID != "" {
		if err := ledger.FinishRun(ctx, report.RunID, writeErr); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	}
	if writeErr != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, writeErr.Error(), nil)
	}

	return outputGenerateReport(formatter, report, opts.Check)
}

func backendNames(bs []backend.Backend) []string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name()
	}
	return names
}

// writeOutputs writes every changed file and records it in the ledger.
// Paths in the report and the ledger are relative to the project root.
func writeOutputs(ctx context.Context, cfg *config.Config, ledger *store.Store, check bool,
	backends []backend.Backend, results [][]backend.File, report *GenerateReport) error {
	for i, b := range backends {
		for _, file := range results[i] {
			out := GeneratedFile{
				Backend: b.Name(),
				Path:    file.Path,
				Hash:    ir.ArtifactHash(file.Path, file.Content),
				Size:    int64(len(file.Content)),
			}
			abs := cfg.Resolve(file.Path)

			existing, err := os.ReadFile(abs)
			switch {
			case err == nil && bytes.Equal(existing, file.Content):
				out.Status = FileUnchanged
			case err == nil || errors.Is(err, os.ErrNotExist):
				out.Status = FileWritten
				if check {
					out.Status = FileStale
				}
			default:
				return fmt.Errorf("read %s: %w", abs, err)
			}

			if ledger != nil && err == nil {
				prev, ok, lerr := ledger.LatestArtifact(ctx, file.Path)
				if lerr != nil {
					return lerr
				}
				out.Edited = ok && prev.Hash != ir.ArtifactHash(file.Path, existing)
			}

			if out.Status == FileWritten {
				if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
					return fmt.Errorf("create %s: %w", filepath.Dir(abs), err)
				}
				if err := os.WriteFile(abs, file.Content, 0644); err != nil {
					return fmt.Errorf("write %s: %w", abs, err)
				}
			}

			if report.RunID != "" {
				if err := ledger.WriteArtifact(ctx, store.Artifact{
					RunID:   report.RunID,
					Backend: out.Backend,
					Path:    out.Path,
					Hash:    out.Hash,
					Size:    out.Size,
				}, file.Content); err != nil {
					return err
				}
			}
			report.Files = append(report.Files, out)
		}
	}
	return nil
}

// outputGenerateReport outputs the report. With check, stale files are a
// failure.
func outputGenerateReport(f *OutputFormatter, report *GenerateReport, check bool) error {
	stale := 0
	for _, file := range report.Files {
		if file.Status == FileStale {
			stale++
		}
	}

	if f.JSON() {
		if stale > 0 {
			return f.Fail(ExitFailure, ErrCodeGenerate, fmt.Sprintf("%d file(s) out of date", stale), report)
		}
		return f.Success(report)
	}

	for _, file := range report.Files {
		mark := okMark()
		if file.Status == FileStale {
			mark = failMark()
		}
		fmt.Fprintf(f.Writer, "%s %-7s %s (%s)\n", mark, file.Backend, file.Path, file.Status)
		if file.Edited {
			fmt.Fprintf(f.Writer, "  %s %s was edited since it was last generated\n", warnMark(), file.Path)
		}
	}
	if report.RunID != "" {
		f.VerboseLog("Recorded run %s", report.RunID)
	}

	if stale > 0 {
		fmt.Fprintf(f.Writer, "\n%d file(s) out of date (run pigeon generate)\n", stale)
		return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) out of date", stale))
	}
	if check {
		fmt.Fprintf(f.Writer, "\n%s All files up to date\n", okMark())
	}
	return nil
}
