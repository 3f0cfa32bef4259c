package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/guillermoBallester/fbmcp/internal/config"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

var errNotConnected = errors.New("database is not reachable")

type diagnosis struct {
	Adapter    port.AdapterStatus     `json:"adapter"`
	Connection *port.ConnectionStatus `json:"connection"`
	I18n       i18n.Status            `json:"i18n"`
	Tables     int                    `json:"tables"`
}

func newDiagnoseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check driver, configuration and connectivity to the Firebird server",
		Long: `The diagnose command loads the configuration, tests the connection to the
Firebird server and prints a report. Failures are classified (network,
authentication, database path, driver) with remediation steps.

The password is never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(version)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			// Diagnostics go to the terminal, logs are discarded.
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))

			d := runDiagnosis(cmd.Context(), cfg, logger)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(d); err != nil {
					return err
				}
			} else if err := renderDiagnosis(cmd.OutOrStdout(), d); err != nil {
				return err
			}

			if !d.Connection.Connected {
				return errNotConnected
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func runDiagnosis(ctx context.Context, cfg *config.Config, logger *slog.Logger) diagnosis {
	if ctx == nil {
		ctx = context.Background()
	}
	db := newDatabase(cfg, logger)
	defer func() { _ = db.Close() }()

	d := diagnosis{
		Adapter:    db.Status(),
		Connection: db.TestConnection(ctx),
	}
	if catalog, err := i18n.Load(cfg.Language); err == nil {
		d.I18n = catalog.Status()
	}
	if d.Connection.Connected {
		if tables, err := db.ListTables(ctx); err == nil {
			d.Tables = len(tables)
		}
	}
	return d
}

func renderDiagnosis(w io.Writer, d diagnosis) error {
	pterm.SetDefaultOutput(w)

	pterm.DefaultSection.Println("Configuration")
	c := d.Adapter.Config
	if err := pterm.DefaultTable.WithData(pterm.TableData{
		{"Host", c.Host},
		{"Port", strconv.Itoa(c.Port)},
		{"Database", c.Database},
		{"User", c.User},
		{"Charset", c.Charset},
		{"DSN", d.Adapter.DSN},
		{"Language", d.I18n.Language},
	}).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Driver")
	if d.Adapter.DriverLoaded {
		pterm.Success.Printfln("%s driver registered", d.Adapter.Driver)
	} else {
		pterm.Error.Printfln("%s driver not registered", d.Adapter.Driver)
	}

	pterm.DefaultSection.Println("Connection")
	conn := d.Connection
	if conn.Connected {
		pterm.Success.Printfln("connected to %s in %s", conn.EngineVersion, conn.Latency)
		pterm.Info.Printfln("%d user tables", d.Tables)
		return nil
	}

	report := conn.Diagnostic
	if report == nil {
		pterm.Error.Println("connection failed")
		return nil
	}
	pterm.Error.Printfln("%s: %s", report.Kind, report.Message)
	if report.Hint != "" {
		pterm.Warning.Println(report.Hint)
	}
	if len(report.Remediation) > 0 {
		items := make([]pterm.BulletListItem, 0, len(report.Remediation))
		for _, step := range report.Remediation {
			items = append(items, pterm.BulletListItem{Level: 0, Text: strings.TrimSpace(step)})
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	}
	return nil
}
