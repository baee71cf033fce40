// Command medsafe serves the medication safety engine over MCP and runs
// one-off assessments from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
	"github.com/medsafe-mcp-server/internal/mcp"
	"github.com/medsafe-mcp-server/internal/service"
	"github.com/medsafe-mcp-server/internal/setup"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &appOptions{}
	root := &cobra.Command{
		Use:          "medsafe",
		Short:        "Medication safety assessment server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default searches ./config.yaml, ./config/, /etc/medsafe/)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(assessCmd(opts))
	root.AddCommand(classifyCmd(opts))
	root.AddCommand(tablesCmd(opts))
	root.AddCommand(setupCmd())
	return root
}

// openApp builds the app with logs on the command's stderr so that stdout
// carries only protocol frames or JSON output.
func openApp(cmd *cobra.Command, opts *appOptions) (*app, error) {
	o := *opts
	o.logOutput = cmd.ErrOrStderr()
	return newApp(o)
}

func serveCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if a.cfg.Engine.WatchRuleTables {
				watcher := knowledge.NewWatcher(a.cfg.Engine.RuleTablesPath, a.registry, a.logger)
				go func() {
					if err := watcher.Run(ctx); err != nil {
						a.logger.WithError(err).Error("Rule table watcher stopped")
					}
				}()
			}

			var serverOpts []mcp.ServerOption
			if a.audit != nil {
				serverOpts = append(serverOpts, mcp.WithAuditStore(a.audit))
			}
			server, err := mcp.NewServer(a.cfg.MCP, a.assessor, a.engine, a.logger, serverOpts...)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			return server.Run(ctx)
		},
	}
}

func assessCmd(opts *appOptions) *cobra.Command {
	var (
		file    string
		compare bool
	)
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess a JSON array of {request, patient} items",
		Example: `  echo '[{"request":{"drug":"ibuprofen","dosage":"400mg"},"patient":{"age":40}}]' | medsafe assess
  medsafe assess --file batch.json --compare`,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readBatch(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.assessor.AssessBatch(cmd.Context(), items)
			if !compare {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Assessments []*domain.Assessment   `json:"assessments"`
				Comparison  *domain.RiskComparison `json:"comparison"`
			}{results, service.CompareRisk(results)})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "input file, - for stdin")
	cmd.Flags().BoolVar(&compare, "compare", false, "rank the results by risk")
	return cmd
}

func readBatch(stdin io.Reader, file string) ([]domain.BatchItem, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var items []domain.BatchItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode batch input: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch input is empty")
	}
	return items, nil
}

func classifyCmd(opts *appOptions) *cobra.Command {
	var (
		age        float64
		conditions []string
	)
	cmd := &cobra.Command{
		Use:   "classify <effect> [effect...]",
		Short: "Classify adverse effect descriptions by severity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var patient *domain.PatientContext
			if cmd.Flags().Changed("age") || len(conditions) > 0 {
				patient = &domain.PatientContext{Age: age, Conditions: conditions}
			}

			classifications := make([]domain.SeverityClassification, 0, len(args))
			for _, effect := range args {
				c, err := a.assessor.ClassifySeverity(cmd.Context(), effect, patient)
				if err != nil {
					return err
				}
				classifications = append(classifications, *c)
			}
			return writeJSON(cmd.OutOrStdout(), service.NewSeverityClassifier(a.logger).Summarize(classifications))
		},
	}
	cmd.Flags().Float64Var(&age, "age", 0, "patient age in years")
	cmd.Flags().StringSliceVar(&conditions, "condition", nil, "patient condition, repeatable")
	return cmd
}

func tablesCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show the active rule table version and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return writeJSON(cmd.OutOrStdout(), a.engine.Tables().Stats())
		},
	}
}

func setupCmd() *cobra.Command {
	var clientConfig string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register medsafe with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client configuration file (default is the platform location)")

	resolve := func() (string, error) {
		if clientConfig != "" {
			return clientConfig, nil
		}
		return setup.DesktopConfigPath()
	}

	var opts setup.Options
	install := &cobra.Command{
		Use:   "install",
		Short: "Add or update the medsafe server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			entry, err := setup.Configure(path, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n", setup.ServerName, path)
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}
	install.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the medsafe binary (default searches PATH)")
	install.Flags().StringVar(&opts.ConfigFile, "server-config", "", "config file passed to medsafe serve")
	install.Flags().StringVar(&opts.AuditDBPath, "audit-db", "", "enable the audit trail at this database path")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			st, err := setup.GetStatus(path)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}

	cmd.AddCommand(install, status)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
