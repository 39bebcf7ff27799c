package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/config"
	"github.com/fjacquet/rubrik_polaris/internal/logging"
	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/fjacquet/rubrik_polaris/internal/polaris"
	"github.com/fjacquet/rubrik_polaris/internal/telemetry"
	"github.com/fjacquet/rubrik_polaris/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultWaitInterval = 10 * time.Second

// cli carries the persistent flags and test hooks shared by every command.
type cli struct {
	configFile string
	queriesDir string
	debug      bool

	// clientOpts are appended to the options of every Polaris client
	clientOpts []polaris.Option
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Client and Prometheus exporter for Rubrik Polaris",
		Long:          "rubrik_polaris queries the Rubrik Polaris GraphQL API and prints the results as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "Path to configuration file (required)")
	root.PersistentFlags().StringVar(&c.queriesDir, "queries", "", "Directory of GraphQL documents replacing the bundled catalog")
	root.PersistentFlags().BoolVarP(&c.debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(
		c.slaCmd(),
		c.snapshotsCmd(),
		c.onDemandCmd(),
		c.assignSLACmd(),
		c.taskStatusCmd(),
		c.eventsCmd(),
		c.reportsCmd(),
		c.instancesCmd(),
		c.queriesCmd(),
		c.schemaCmd(),
		c.serveCmd(),
	)
	return root
}

// loadConfig validates the configuration file and builds the logger it
// describes. --debug forces debug output.
func (c *cli) loadConfig() (*models.Config, *logrus.Logger, error) {
	if c.configFile == "" {
		return nil, nil, errors.New("--config is required")
	}
	if !utils.FileExists(c.configFile) {
		return nil, nil, fmt.Errorf("config file not found: %s", c.configFile)
	}

	cfg, err := models.LoadConfig(c.configFile)
	if err != nil {
		return nil, nil, err
	}

	opts := cfg.LoggingOptions()
	if c.debug {
		opts.Enabled = true
		opts.Level = "debug"
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, logger, nil
}

func (c *cli) catalogOption() ([]polaris.Option, error) {
	if c.queriesDir == "" {
		return nil, nil
	}
	catalog, err := polaris.LoadCatalog(os.DirFS(c.queriesDir))
	if err != nil {
		return nil, err
	}
	return []polaris.Option{polaris.WithCatalog(catalog)}, nil
}

// withClient opens a session, runs fn and releases the session and any
// tracing pipeline.
func (c *cli) withClient(cmd *cobra.Command, fn func(ctx context.Context, client *polaris.Client) error) error {
	cfg, logger, err := c.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []polaris.Option{polaris.WithLogger(logger)}

	if cfg.IsOTelEnabled() {
		mgr := telemetry.NewManager(telemetry.Config{
			Enabled:        true,
			Endpoint:       cfg.OpenTelemetry.Endpoint,
			Insecure:       cfg.OpenTelemetry.Insecure,
			SamplingRate:   cfg.OpenTelemetry.SamplingRate,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			PolarisDomain:  cfg.Polaris.Domain,
			Logger:         logger,
		})
		if err := mgr.Initialize(ctx); err != nil {
			logger.Warnf("Failed to initialize OpenTelemetry: %v. Continuing without tracing.", err)
		}
		if tp := mgr.TracerProvider(); tp != nil {
			opts = append(opts, polaris.WithTracerProvider(tp))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = mgr.Shutdown(shutdownCtx)
		}()
	}

	catalogOpts, err := c.catalogOption()
	if err != nil {
		return err
	}
	opts = append(opts, catalogOpts...)
	opts = append(opts, c.clientOpts...)

	client, err := polaris.NewClient(ctx, *cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, client)
}

func (c *cli) slaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sla [name]",
		Short: "Map SLA domain names to ids",
		Long:  "Without a name every SLA domain is listed; with a name exactly that domain is returned or the command fails",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				domains, err := client.LookupSLADomains(ctx, name)
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), domains)
			})
		},
	}
}

func (c *cli) snapshotsCmd() *cobra.Command {
	var recoveryPoint string

	cmd := &cobra.Command{
		Use:   "snapshots <snappable-id>",
		Short: "List the snapshots of an object or select a recovery point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				snapshots, err := client.Snapshots(ctx, args[0], recoveryPoint)
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), snapshots)
			})
		},
	}
	cmd.Flags().StringVar(&recoveryPoint, "recovery-point", "", `"latest" or a timestamp; the closest snapshot at or after it is returned`)
	return cmd
}

type onDemandOutput struct {
	models.OnDemandResult
	States map[string]polaris.TaskState `json:"states,omitempty"`
}

func (c *cli) onDemandCmd() *cobra.Command {
	var (
		slaID    string
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "on-demand <object-id>...",
		Short: "Take on-demand snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				result, err := client.SubmitOnDemand(ctx, args, slaID)
				if err != nil {
					return err
				}

				out := onDemandOutput{OnDemandResult: result}
				if wait {
					out.States, err = waitForTasks(ctx, client, polaris.TaskHandles(result), interval)
					if err != nil {
						return err
					}
				}
				return utils.WriteJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&slaID, "sla", "", "SLA domain id retaining the snapshots (required)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll the task chains until they reach a terminal state")
	cmd.Flags().DurationVar(&interval, "interval", defaultWaitInterval, "Polling interval used with --wait")
	_ = cmd.MarkFlagRequired("sla")
	return cmd
}

// waitForTasks polls each handle until its state is terminal.
func waitForTasks(ctx context.Context, client *polaris.Client, handles []polaris.TaskHandle, interval time.Duration) (map[string]polaris.TaskState, error) {
	states := make(map[string]polaris.TaskState, len(handles))
	pending := append([]polaris.TaskHandle(nil), handles...)

	for len(pending) > 0 {
		var next []polaris.TaskHandle
		for _, h := range pending {
			state, err := client.TaskStatus(ctx, h)
			if err != nil {
				return nil, err
			}
			states[string(h)] = state
			if !state.IsTerminal() {
				next = append(next, h)
			}
		}
		pending = next
		if len(pending) == 0 {
			break
		}
		if err := utils.Pause(ctx, interval); err != nil {
			return nil, err
		}
	}
	return states, nil
}

func (c *cli) assignSLACmd() *cobra.Command {
	var (
		slaID         string
		doNotProtect  bool
		applyExisting bool
		retention     string
	)

	cmd := &cobra.Command{
		Use:   "assign-sla <object-id>...",
		Short: "Assign an SLA domain to objects, or remove their protection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := polaris.SLAAssignment{
				ObjectIDs:                 args,
				SLAID:                     slaID,
				ExistingSnapshotRetention: polaris.SnapshotRetention(retention),
			}
			if doNotProtect {
				a.AssignType = polaris.AssignDoNotProtect
			}
			if cmd.Flags().Changed("apply-existing") {
				a.ApplyToExistingSnapshots = &applyExisting
			}

			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				ok, err := client.AssignSLA(ctx, a)
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), map[string]bool{"success": ok})
			})
		},
	}
	cmd.Flags().StringVar(&slaID, "sla", "", "SLA domain id to assign")
	cmd.Flags().BoolVar(&doNotProtect, "do-not-protect", false, "Remove protection instead of assigning an SLA")
	cmd.Flags().BoolVar(&applyExisting, "apply-existing", false, "Apply the change to existing snapshots")
	cmd.Flags().StringVar(&retention, "retention", "", "Existing snapshot retention: RETAIN_SNAPSHOTS, KEEP_FOREVER or EXPIRE_IMMEDIATELY")
	return cmd
}

func (c *cli) taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task-status <handle>",
		Short: "Show the state of a task chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				state, err := client.TaskStatus(ctx, polaris.TaskHandle(args[0]))
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), map[string]string{
					"handle": args[0],
					"state":  string(state),
				})
			})
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	var (
		since string
		f     polaris.EventFilter
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List activity events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := utils.ParseSince(since, time.Now())
			if err != nil {
				return err
			}
			f.Since = start

			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				events, err := client.Events(ctx, f)
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), events)
			})
		},
	}
	cmd.Flags().StringVar(&since, "since", "24h", "Duration or RFC 3339 timestamp bounding lastUpdated; empty for no bound")
	cmd.Flags().StringSliceVar(&f.Statuses, "status", nil, "Last activity statuses, e.g. Failure")
	cmd.Flags().StringSliceVar(&f.ActivityTypes, "activity-type", nil, "Last activity types, e.g. Backup")
	cmd.Flags().StringSliceVar(&f.ObjectTypes, "object-type", nil, "Object types, e.g. VmwareVm")
	cmd.Flags().StringSliceVar(&f.Severities, "severity", nil, "Severities, e.g. Critical")
	cmd.Flags().StringSliceVar(&f.ClusterIDs, "cluster", nil, "Cluster ids")
	cmd.Flags().StringVar(&f.ObjectName, "object-name", "", "Object name")
	cmd.Flags().IntVar(&f.First, "first", 0, "Maximum number of series")
	return cmd
}

func (c *cli) reportsCmd() *cobra.Command {
	var f polaris.ReportFilter

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Show the protection report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				rows, err := client.Reports(ctx, f)
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringSliceVar(&f.ObjectTypes, "object-type", nil, "Object types")
	cmd.Flags().StringSliceVar(&f.ClusterIDs, "cluster", nil, "Cluster ids")
	cmd.Flags().StringSliceVar(&f.ComplianceStatuses, "compliance", nil, "Compliance statuses, e.g. OutOfCompliance")
	cmd.Flags().StringSliceVar(&f.ProtectionStatuses, "protection", nil, "Protection statuses")
	cmd.Flags().IntVar(&f.First, "first", polaris.DefaultReportSize, "Maximum number of rows")
	return cmd
}

func (c *cli) instancesCmd() *cobra.Command {
	var (
		fields   map[string]string
		tags     map[string]string
		matchAny bool
	)

	cmd := &cobra.Command{
		Use:   "instances <aws|azure|gcp>",
		Short: "List cloud-native instances, or the ids of those matching --field/--tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := polaris.ParseProvider(args[0])
			if err != nil {
				return err
			}
			criteria := polaris.Criteria{Fields: fields, Tags: tags}
			mode := polaris.MatchAll
			if matchAny {
				mode = polaris.MatchAny
			}

			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				if criteria.Empty() {
					instances, err := client.CloudInstances(ctx, provider)
					if err != nil {
						return err
					}
					return utils.WriteJSON(cmd.OutOrStdout(), instances)
				}
				ids, err := client.FilterCloudInstances(ctx, provider, criteria, mode)
				if err != nil {
					return err
				}
				return utils.WriteJSON(cmd.OutOrStdout(), ids)
			})
		},
	}
	cmd.Flags().StringToStringVar(&fields, "field", nil, "Field predicate key=value; dotted keys reach nested fields")
	cmd.Flags().StringToStringVar(&tags, "tag", nil, "Tag predicate key=value")
	cmd.Flags().BoolVar(&matchAny, "any", false, "Keep instances matching any predicate instead of all")
	return cmd
}

type catalogListing struct {
	Key           string   `json:"key"`
	Operation     string   `json:"operation"`
	OperationName string   `json:"operationName"`
	Connections   []string `json:"connections"`
}

func (c *cli) queriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queries",
		Short: "List the GraphQL operations in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				catalog *polaris.Catalog
				err     error
			)
			if c.queriesDir != "" {
				catalog, err = polaris.LoadCatalog(os.DirFS(c.queriesDir))
			} else {
				catalog, err = polaris.DefaultCatalog()
			}
			if err != nil {
				return err
			}

			listing := make([]catalogListing, 0, catalog.Len())
			for _, key := range catalog.Keys() {
				entry, err := catalog.Get(key)
				if err != nil {
					return err
				}
				conns := entry.Connections
				if conns == nil {
					conns = []string{}
				}
				listing = append(listing, catalogListing{
					Key:           entry.Key,
					Operation:     string(entry.Operation),
					OperationName: entry.OperationName,
					Connections:   conns,
				})
			}
			return utils.WriteJSON(cmd.OutOrStdout(), listing)
		},
	}
}

func (c *cli) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the introspected GraphQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withClient(cmd, func(ctx context.Context, client *polaris.Client) error {
				env, err := client.Schema(ctx)
				if err != nil {
					return err
				}
				if gerr := env.Err(); gerr != nil {
					return gerr
				}
				return utils.WriteJSON(cmd.OutOrStdout(), env.Data)
			})
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Polaris metrics for Prometheus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.loadConfig()
			if err != nil {
				return err
			}

			opts := cfg.LoggingOptions()
			if c.debug {
				opts.Level = "debug"
			}
			if opts.Enabled || c.debug {
				if err := logging.PrepareLogs(opts.LogName, opts.Level); err != nil {
					return fmt.Errorf("failed to initialize logging: %w", err)
				}
			}
			logging.LogInfo(fmt.Sprintf("Starting %s exporter for domain %s", programName, cfg.Polaris.Domain))
			logger.Infof("Scraping interval: %s", cfg.Server.ScrapingInterval)
			if c.debug {
				logger.Debugf("Polaris user %s, password %s", cfg.Polaris.Username, cfg.MaskPassword())
			}

			catalogOpts, err := c.catalogOption()
			if err != nil {
				return err
			}
			factory := polarisClientFactory(logger, append(catalogOpts, c.clientOpts...)...)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			server := NewServer(cfg, logger, factory)
			if err := server.Start(ctx); err != nil {
				return err
			}

			config.SetupSIGHUPHandler(ctx, c.configFile, server.ReloadConfig, config.WithLogger(logger))
			if watch {
				watcher, err := config.WatchConfigFile(c.configFile, server.ReloadConfig, config.WithLogger(logger))
				if err != nil {
					logger.Warnf("File watcher setup failed: %v", err)
				} else {
					defer func() { _ = watcher.Close() }()
				}
			}

			if err := waitForShutdown(logger, server.ErrorChan()); err != nil {
				logging.LogError(fmt.Sprintf("Server error: %v", err))
			}
			return server.Shutdown()
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the configuration when the file changes")
	return cmd
}
