package siteforge

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/siteforge/pkg/builddriver"
	"github.com/arthur-debert/siteforge/pkg/config"
	"github.com/arthur-debert/siteforge/pkg/logging"
	"github.com/arthur-debert/siteforge/pkg/orchestrator"
	"github.com/arthur-debert/siteforge/pkg/rowsource"
	"github.com/arthur-debert/siteforge/pkg/substitute"
	"github.com/arthur-debert/siteforge/pkg/walker"
)

func newGenerateCmd() *cobra.Command {
	var (
		csvPath     string
		templateDir string
		outputDir   string
		parallel    bool
		batchSize   int
		skipBuild   bool
		only        string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and build one site per CSV row",
		Long: `Reads the row source, then for each row: materializes a clean copy of
the template, substitutes row values and random variants into its files,
stamps the site identity, and runs the project's install and build commands.
A row's failure is isolated; the run reports every row's outcome.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("generate")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags override file and environment settings
			flags := cmd.Flags()
			if flags.Changed("csv") {
				cfg.CSV = csvPath
			}
			if flags.Changed("template") {
				cfg.Template = templateDir
			}
			if flags.Changed("output") {
				cfg.Output = outputDir
			}
			if flags.Changed("parallel") {
				cfg.Run.Parallel = parallel
			}
			if flags.Changed("batch-size") {
				cfg.Run.BatchSize = batchSize
			}
			if flags.Changed("skip-build") {
				cfg.Build.Skip = skipBuild
			}

			if err := config.ApplyTemplateOverrides(cfg, cfg.Template); err != nil {
				return err
			}

			rows, err := rowsource.Load(cfg.CSV)
			if err != nil {
				return err
			}
			logger.Info().Int("rows", len(rows)).Str("csv", cfg.CSV).Msg("row source loaded")

			engine := substitute.New(nil)
			w := walker.New(engine, walker.Options{
				Include:        cfg.Walk.Include,
				ExcludeDirs:    cfg.Walk.ExcludeDirs,
				CodeExtensions: cfg.Walk.CodeExtensions,
			})
			driver := builddriver.New(builddriver.Options{
				InstallCommand: cfg.Build.InstallCommand,
				BuildCommand:   cfg.Build.BuildCommand,
				Timeout:        time.Duration(cfg.Build.TimeoutMinutes) * time.Minute,
			})
			orch := orchestrator.New(orchestrator.Options{
				TemplateDir: cfg.Template,
				OutputRoot:  cfg.Output,
				ExcludeDirs: cfg.Walk.ExcludeDirs,
				Parallel:    cfg.Run.Parallel,
				BatchSize:   cfg.Run.BatchSize,
				SkipBuild:   cfg.Build.Skip,
				Only:        only,
			}, w, driver)

			summary, err := orch.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}

			if !isatty.IsTerminal(os.Stdout.Fd()) {
				pterm.DisableColor()
			}
			summary.Render(cmd.OutOrStdout())

			if err := summary.WriteFiles(cfg.Output); err != nil {
				return err
			}

			// Row failures are reported, not fatal; the run only fails when no
			// row could be started at all.
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "sites.csv", "Path to the row source CSV")
	cmd.Flags().StringVar(&templateDir, "template", "template", "Path to the template project")
	cmd.Flags().StringVar(&outputDir, "output", "output", "Output root for materialized projects")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Process rows in concurrent batches")
	cmd.Flags().IntVar(&batchSize, "batch-size", 4, "Rows per concurrent batch")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Stop after substitution and finalization")
	cmd.Flags().StringVar(&only, "only", "", "Generate a single domain")

	return cmd
}
