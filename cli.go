package graft

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type CLIConfig struct {
	ConfigPath  string
	Root        string
	DryRun      bool
	Atomic      bool
	Undo        bool
	Redo        bool
	Verbose     bool
	UseNvim     bool
	NoAnimation bool
	Debug       bool
	Completion  string
}

var cfg = &CLIConfig{}

var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "Apply structural edits to source trees from a rule catalog.",
	Long: `Apply a catalog of idempotent structural edits (imports, struct fields,
constructor parameters, call arguments, placeholder statements) across every
file matching the catalog's glob patterns, rewriting only files that change.

Rules are read from an HCL file, or from a markdown playbook on stdin or the
clipboard.

Example: graft -c rules.hcl --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Completion != "" {
			return handleCompletion(cmd)
		}

		if cfg.Undo && cfg.Redo {
			return fmt.Errorf("error: --undo and --redo are mutually exclusive")
		}

		if cfg.Debug {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}

		graftCfg := &Config{
			ConfigPath: cfg.ConfigPath,
			Root:       cfg.Root,
			DryRun:     cfg.DryRun,
			Atomic:     cfg.Atomic,
			Undo:       cfg.Undo,
			Redo:       cfg.Redo,
			Verbose:    cfg.Verbose,
			UseNvim:    cfg.UseNvim,
		}

		app, err := NewApp(graftCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer app.Close()

		ui := NewTUI(app, cfg.NoAnimation, cfg.Verbose)
		return ui.Run()
	},
}

func handleCompletion(cmd *cobra.Command) error {
	switch cfg.Completion {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell for completion: %s", cfg.Completion)
	}
}

func init() {
	rootCmd.Flags().StringVar(&cfg.Completion, "completion", "", "Generate completion script")
	rootCmd.Flags().StringVarP(&cfg.ConfigPath, "config", "c", "", "Path to the HCL rule catalog")
	rootCmd.Flags().StringVar(&cfg.Root, "root", "", "Directory glob patterns are resolved against (default: cwd)")
	rootCmd.Flags().BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Transform in memory, write nothing")
	rootCmd.Flags().BoolVar(&cfg.Atomic, "atomic", false, "Stage all rewrites, write only after every file transforms")
	rootCmd.Flags().BoolVarP(&cfg.Undo, "undo", "u", false, "Undo last run")
	rootCmd.Flags().BoolVarP(&cfg.Redo, "redo", "r", false, "Redo last undone run")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Also report unchanged files")
	rootCmd.Flags().BoolVar(&cfg.UseNvim, "nvim", false, "Apply changes through Neovim buffers")
	rootCmd.Flags().BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable spinner")
	rootCmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func Execute() error {
	return rootCmd.Execute()
}
