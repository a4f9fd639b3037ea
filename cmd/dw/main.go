package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dockwise/internal/app"
	"dockwise/internal/config"
	"dockwise/internal/db"
	"dockwise/internal/engine"
	"dockwise/internal/logger"
	"dockwise/internal/repo"
	"dockwise/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "dw",
	Short: "Dockwise CLI",
	Long: `Dockwise manages loading-dock reservations for a logistics facility:
dock inventory with type and state, time-boxed reservations with per-dock
conflict checks, scheduled maintenance windows, incident tracking and
reporting. The workspace is a .dockwise directory holding the database;
'dw serve' exposes the same operations over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return logger.Init(logger.Config{
			Debug:        viper.GetBool("debug"),
			WorkspaceDir: workspace,
		})
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DOCKWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging")
	rootCmd.PersistentFlags().String("actor-id", "local-admin", "acting user id")
	rootCmd.PersistentFlags().String("role", "administrator", "acting role")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(dockCmd())
	rootCmd.AddCommand(reservationCmd())
	rootCmd.AddCommand(maintenanceCmd())
	rootCmd.AddCommand(incidentCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actor() engine.Actor {
	return engine.Actor{ID: viper.GetString("actor-id"), Role: viper.GetString("role")}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if _, err := os.Stat(config.Path(workspace)); os.IsNotExist(err) {
				data, err := cfg.ToYAML()
				if err != nil {
					return err
				}
				if err := os.WriteFile(config.Path(workspace), data, 0o644); err != nil {
					return err
				}
			}
			conn, err := app.Open(cfg, workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Printf("Initialized workspace at %s (db: %s)\n", workspace, db.Path(workspace))
			return nil
		},
	}
}

func dockCmd() *cobra.Command {
	c := &cobra.Command{Use: "dock", Short: "Manage docks"}
	c.AddCommand(dockCreateCmd())
	c.AddCommand(dockListCmd())
	c.AddCommand(dockShowCmd())
	c.AddCommand(dockUpdateCmd())
	c.AddCommand(dockActivateCmd(true))
	c.AddCommand(dockActivateCmd(false))
	c.AddCommand(dockAvailabilityCmd())
	c.AddCommand(dockTypesCmd())
	c.AddCommand(dockStatesCmd())
	return c
}

func dockCreateCmd() *cobra.Command {
	var number, typeID int
	var capacity float64
	var location, notes string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a dock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.DockCreateOptions{
					Number:   number,
					TypeID:   typeID,
					Location: location,
					Notes:    notes,
				}
				if cmd.Flags().Changed("capacity") {
					opts.Capacity = &capacity
				}
				d, err := e.CreateDock(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().IntVar(&number, "number", 0, "dock number")
	cmd.Flags().IntVar(&typeID, "type", 1, "dock type id")
	cmd.Flags().Float64Var(&capacity, "capacity", 0, "capacity in tonnes")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func dockListCmd() *cobra.Command {
	var state string
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List docks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListDocks(ctx, repo.DockFilters{StateCode: state, ActiveOnly: activeOnly})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Number", "State", "Active", "Location"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.Number, d.StateCode, d.Active, d.Location})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "filter by state code")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "active docks only")
	return cmd
}

func dockShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <dock-id>",
		Short: "Show dock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Repo.GetDock(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	return cmd
}

func dockUpdateCmd() *cobra.Command {
	var number, typeID int
	var capacity float64
	var location, notes string
	cmd := &cobra.Command{
		Use:   "update <dock-id>",
		Short: "Update dock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var opts engine.DockUpdateOptions
				if cmd.Flags().Changed("number") {
					opts.Number = &number
				}
				if cmd.Flags().Changed("type") {
					opts.TypeID = &typeID
				}
				if cmd.Flags().Changed("capacity") {
					opts.Capacity = &capacity
				}
				if cmd.Flags().Changed("location") {
					opts.Location = &location
				}
				if cmd.Flags().Changed("notes") {
					opts.Notes = &notes
				}
				d, err := e.UpdateDock(ctx, actor(), args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().IntVar(&number, "number", 0, "dock number")
	cmd.Flags().IntVar(&typeID, "type", 0, "dock type id")
	cmd.Flags().Float64Var(&capacity, "capacity", 0, "capacity in tonnes")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func dockActivateCmd(active bool) *cobra.Command {
	use, short := "activate <dock-id>", "Reactivate dock"
	if !active {
		use, short = "deactivate <dock-id>", "Soft-delete dock"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.SetDockActive(ctx, actor(), args[0], active)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
}

func dockAvailabilityCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "availability <dock-id>",
		Short: "Check dock availability for a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("--start must be RFC3339: %w", err)
			}
			en, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("--end must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				av, err := e.CheckAvailability(ctx, args[0], s, en)
				if err != nil {
					return err
				}
				return printJSONOrTable(av)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "window start (RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "window end (RFC3339)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func dockTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List dock types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListDockTypes(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func dockStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List dock states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListDockStates(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func reservationCmd() *cobra.Command {
	c := &cobra.Command{Use: "reservation", Short: "Manage reservations"}
	c.AddCommand(reservationCreateCmd())
	c.AddCommand(reservationListCmd())
	c.AddCommand(reservationShowCmd())
	c.AddCommand(reservationCancelCmd())
	c.AddCommand(reservationCompleteCmd())
	return c
}

func reservationCreateCmd() *cobra.Command {
	var dockID, start, end, plate, driver, cargoType string
	var cargoWeight float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("--start must be RFC3339: %w", err)
			}
			en, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("--end must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ReservationCreateOptions{
					DockID:       dockID,
					WindowStart:  s,
					WindowEnd:    en,
					VehiclePlate: optionalString(plate),
					DriverName:   optionalString(driver),
					CargoType:    optionalString(cargoType),
				}
				if cmd.Flags().Changed("cargo-weight") {
					opts.CargoWeight = &cargoWeight
				}
				rv, err := e.CreateReservation(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rv)
			})
		},
	}
	cmd.Flags().StringVar(&dockID, "dock", "", "dock id")
	cmd.Flags().StringVar(&start, "start", "", "window start (RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "window end (RFC3339)")
	cmd.Flags().StringVar(&plate, "plate", "", "vehicle plate")
	cmd.Flags().StringVar(&driver, "driver", "", "driver name")
	cmd.Flags().StringVar(&cargoType, "cargo-type", "", "cargo type")
	cmd.Flags().Float64Var(&cargoWeight, "cargo-weight", 0, "cargo weight in tonnes")
	_ = cmd.MarkFlagRequired("dock")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func reservationListCmd() *cobra.Command {
	var dockID, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListReservations(ctx, actor(), repo.ReservationFilters{
					DockID: dockID,
					Status: status,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Dock", "Start", "End", "Status"})
				for _, rv := range items {
					tw.AppendRow(table.Row{rv.ID, rv.DockID, rv.WindowStart, rv.WindowEnd, rv.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dockID, "dock", "", "filter by dock id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func reservationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <reservation-id>",
		Short: "Show reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rv, err := e.GetReservation(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rv)
			})
		},
	}
}

func reservationCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rv, err := e.CancelReservation(ctx, actor(), args[0], reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(rv)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func reservationCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <reservation-id>",
		Short: "Complete reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rv, err := e.CompleteReservation(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rv)
			})
		},
	}
}

func maintenanceCmd() *cobra.Command {
	c := &cobra.Command{Use: "maintenance", Short: "Manage maintenance windows"}
	c.AddCommand(maintenanceCreateCmd())
	c.AddCommand(maintenanceListCmd())
	c.AddCommand(maintenanceShowCmd())
	c.AddCommand(maintenanceStartCmd())
	c.AddCommand(maintenanceCompleteCmd())
	c.AddCommand(maintenanceCancelCmd())
	return c
}

func maintenanceCreateCmd() *cobra.Command {
	var dockID, kind, description, start, end, technician string
	var cost float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("--start must be RFC3339: %w", err)
			}
			en, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("--end must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.MaintenanceCreateOptions{
					DockID:         dockID,
					Kind:           kind,
					Description:    description,
					ScheduledStart: s,
					ScheduledEnd:   en,
					Technician:     optionalString(technician),
				}
				if cmd.Flags().Changed("cost") {
					opts.Cost = &cost
				}
				m, err := e.CreateMaintenance(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&dockID, "dock", "", "dock id")
	cmd.Flags().StringVar(&kind, "kind", "preventive", "preventive, corrective or emergency")
	cmd.Flags().StringVar(&description, "description", "", "work description")
	cmd.Flags().StringVar(&start, "start", "", "scheduled start (RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "scheduled end (RFC3339)")
	cmd.Flags().StringVar(&technician, "technician", "", "assigned technician")
	cmd.Flags().Float64Var(&cost, "cost", 0, "estimated cost")
	_ = cmd.MarkFlagRequired("dock")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func maintenanceListCmd() *cobra.Command {
	var dockID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List maintenance windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListMaintenances(ctx, repo.MaintenanceFilters{DockID: dockID, Status: status})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Dock", "Kind", "Start", "End", "Status"})
				for _, m := range items {
					tw.AppendRow(table.Row{m.ID, m.DockID, m.Kind, m.ScheduledStart, m.ScheduledEnd, m.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dockID, "dock", "", "filter by dock id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func maintenanceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <maintenance-id>",
		Short: "Show maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.Repo.GetMaintenance(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func maintenanceStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <maintenance-id>",
		Short: "Start maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.StartMaintenance(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func maintenanceCompleteCmd() *cobra.Command {
	var cost float64
	var notes string
	cmd := &cobra.Command{
		Use:   "complete <maintenance-id>",
		Short: "Complete maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var costPtr *float64
				if cmd.Flags().Changed("cost") {
					costPtr = &cost
				}
				m, err := e.CompleteMaintenance(ctx, actor(), args[0], costPtr, optionalString(notes))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().Float64Var(&cost, "cost", 0, "final cost")
	cmd.Flags().StringVar(&notes, "notes", "", "completion notes")
	return cmd
}

func maintenanceCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <maintenance-id>",
		Short: "Cancel maintenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CancelMaintenance(ctx, actor(), args[0], reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func incidentCmd() *cobra.Command {
	c := &cobra.Command{Use: "incident", Short: "Manage incidents"}
	c.AddCommand(incidentCreateCmd())
	c.AddCommand(incidentListCmd())
	c.AddCommand(incidentShowCmd())
	c.AddCommand(incidentAssignCmd())
	c.AddCommand(incidentResolveCmd())
	c.AddCommand(incidentCloseCmd())
	c.AddCommand(incidentSummaryCmd())
	return c
}

func incidentCreateCmd() *cobra.Command {
	var dockID, reservationID, kind, description, severity string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Report incident",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.CreateIncident(ctx, actor(), engine.IncidentCreateOptions{
					DockID:        optionalString(dockID),
					ReservationID: optionalString(reservationID),
					Kind:          kind,
					Description:   description,
					Severity:      severity,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
	cmd.Flags().StringVar(&dockID, "dock", "", "dock id")
	cmd.Flags().StringVar(&reservationID, "reservation", "", "reservation id")
	cmd.Flags().StringVar(&kind, "kind", "", "incident kind")
	cmd.Flags().StringVar(&description, "description", "", "what happened")
	cmd.Flags().StringVar(&severity, "severity", "medium", "low, medium, high or critical")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func incidentListCmd() *cobra.Command {
	var status, severity string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListIncidents(ctx, actor(), repo.IncidentFilters{Status: status, Severity: severity})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Kind", "Severity", "Status", "Occurred"})
				for _, in := range items {
					tw.AppendRow(table.Row{in.ID, in.Kind, in.Severity, in.Status, in.OccurredAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	return cmd
}

func incidentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <incident-id>",
		Short: "Show incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.GetIncident(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
}

func incidentAssignCmd() *cobra.Command {
	var assignee string
	cmd := &cobra.Command{
		Use:   "assign <incident-id>",
		Short: "Assign incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.AssignIncident(ctx, actor(), args[0], assignee)
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
	cmd.Flags().StringVar(&assignee, "to", "", "assignee user id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func incidentResolveCmd() *cobra.Command {
	var resolution string
	cmd := &cobra.Command{
		Use:   "resolve <incident-id>",
		Short: "Resolve incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.ResolveIncident(ctx, actor(), args[0], resolution)
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
	cmd.Flags().StringVar(&resolution, "resolution", "", "how it was resolved")
	_ = cmd.MarkFlagRequired("resolution")
	return cmd
}

func incidentCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <incident-id>",
		Short: "Close incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.CloseIncident(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
}

func incidentSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Incident summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.IncidentSummary(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}

func userCmd() *cobra.Command {
	c := &cobra.Command{Use: "user", Short: "Manage users"}
	c.AddCommand(userRegisterCmd())
	c.AddCommand(userListCmd())
	c.AddCommand(userShowCmd())
	c.AddCommand(userUpdateCmd())
	c.AddCommand(userActivateCmd(true))
	c.AddCommand(userActivateCmd(false))
	return c
}

func userRegisterCmd() *cobra.Command {
	var email, name, role, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, engine.UserCreateOptions{
					Email:    email,
					Name:     name,
					Role:     role,
					Password: password,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "user-role", "", "role (defaults to operator)")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userListCmd() *cobra.Command {
	var role string
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListUsers(ctx, actor(), repo.UserFilters{Role: role, ActiveOnly: activeOnly})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Name", "Role", "Active"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.Email, u.Name, u.Role, u.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "user-role", "", "filter by role")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "active users only")
	return cmd
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.GetUser(ctx, actor(), args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
}

func userUpdateCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var opts engine.UserUpdateOptions
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("user-role") {
					opts.Role = &role
				}
				u, err := e.UpdateUser(ctx, actor(), args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "user-role", "", "role")
	return cmd
}

func userActivateCmd(active bool) *cobra.Command {
	use, short := "activate <user-id>", "Activate user"
	if !active {
		use, short = "deactivate <user-id>", "Deactivate user"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.SetUserActive(ctx, actor(), args[0], active)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
}

func reportCmd() *cobra.Command {
	c := &cobra.Command{Use: "report", Short: "Reports"}
	c.AddCommand(&cobra.Command{
		Use:   "docks",
		Short: "Dock statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.DockStats(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(st)
			})
		},
	})
	c.AddCommand(reportDailyCmd())
	c.AddCommand(reportUsageCmd())
	c.AddCommand(&cobra.Command{
		Use:   "active",
		Short: "Reservations in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ActiveReservations(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "Pending maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.PendingMaintenance(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Facility dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Dashboard(ctx, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	})
	return c
}

func reportDailyCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Daily reservation usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := time.Parse(time.RFC3339, from)
			if err != nil {
				return fmt.Errorf("--from must be RFC3339: %w", err)
			}
			t, err := time.Parse(time.RFC3339, to)
			if err != nil {
				return fmt.Errorf("--to must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.DailyUsage(ctx, actor(), f, t)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "range end (RFC3339)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func reportUsageCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Per-dock usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := time.Parse(time.RFC3339, from)
			if err != nil {
				return fmt.Errorf("--from must be RFC3339: %w", err)
			}
			t, err := time.Parse(time.RFC3339, to)
			if err != nil {
				return fmt.Errorf("--to must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.UsageByDock(ctx, actor(), f, t)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "range end (RFC3339)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func logCmd() *cobra.Command {
	c := &cobra.Command{Use: "log", Short: "Audit log"}
	c.AddCommand(logTailCmd())
	return c
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if secret := os.Getenv("DOCKWISE_JWT_SECRET"); secret != "" {
				cfg.Auth.JWTSecret = secret
			}
			conn, err := app.Open(cfg, workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			e := engine.New(conn, cfg)
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret: cfg.Auth.JWTSecret,
					TokenTTL:  cfg.TokenTTL(),
				},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving API", "addr", addr, "base_path", basePath)
			fmt.Printf("Serving Dockwise API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	conn, err := app.Open(cfg, workspace)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, engine.New(conn, cfg))
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
