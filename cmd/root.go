package cmd

import (
	"context"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depdoctor/depdoctor/application"
	"github.com/depdoctor/depdoctor/config"
	"github.com/depdoctor/depdoctor/domain"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	srcDir       string
	applyPatches bool
	riskCSV      string
	autoYes      bool
	concurrency  int
	verbose      bool
	configPath   string
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "depdoctor <package.json>",
	Short: "LLM-assisted dependency upgrade advisor for JavaScript projects",
	Long: `Analyze a project's package.json for outdated dependencies, classify each
upgrade's risk with an LLM reading the changelog, optionally generate and
review code patches for risky upgrades, and rewrite the manifest for the
upgrades you approve.

Nothing is written silently: every manifest edit, patch apply, and peer
addition is either confirmed interactively or covered by --yes together
with the --risk allow-set.`,
	Args: func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return domain.NewUsageError("expected exactly one argument: the path to package.json")
		}
		return nil
	},
	RunE:          runDoctor,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the given context. Errors are returned for the
// caller to map onto exit codes.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.Flags().StringVar(&srcDir, "src", "",
		"Path to the source directory to scan for package usages")
	rootCmd.Flags().BoolVar(&applyPatches, "apply-patches", false,
		"Generate and apply LLM code patches after review (requires --src)")
	rootCmd.Flags().StringVar(&riskCSV, "risk", "SAFE",
		"Comma-separated risk levels allowed to update (SAFE, CAUTION, DANGEROUS)")
	rootCmd.Flags().BoolVarP(&autoYes, "yes", "y", false,
		"Skip confirmation prompts; auto-approval is still bounded by --risk")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 1,
		"Number of dependencies processed in parallel (requires --yes when > 1)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: auto-detect)")

	// Unknown flags and other parse failures are invalid invocations.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return domain.NewUsageError("%v", err)
	})
}

func runDoctor(cmd *cobra.Command, args []string) error {
	// Flag validation happens before anything touches the manifest.
	allowed, err := domain.ParseRiskSet(riskCSV)
	if err != nil {
		return domain.NewUsageError("invalid --risk value: %v", err)
	}
	if applyPatches && srcDir == "" {
		return domain.NewUsageError("--apply-patches requires --src")
	}
	if concurrency > 1 && !autoYes {
		return domain.NewUsageError("--concurrency > 1 requires --yes (interactive review is sequential)")
	}

	if verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	service, err := buildService(cfg, args[0], autoYes)
	if err != nil {
		return err
	}

	report, err := service.Run(cmd.Context(), application.RunOptions{
		SrcDir:             srcDir,
		ApplyPatches:       applyPatches,
		Allowed:            allowed,
		Concurrency:        concurrency,
		AllowPartialUpdate: cfg.AllowPartialUpdate,
	})
	if err != nil {
		return err
	}

	report.Render(os.Stdout)
	return nil
}
