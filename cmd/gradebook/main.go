// Command gradebook runs registrar maintenance against the record store.
//
//	gradebook migrate [-status]
//	gradebook report [-semester I|II|all]
//	gradebook export -out transcripts.zip [-semester I|II|all] [-ids a,b]
//	gradebook recompute
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/smcen/registrar/config"
	"github.com/smcen/registrar/internal/application/command"
	"github.com/smcen/registrar/internal/application/query"
	"github.com/smcen/registrar/internal/domain/grading"
	"github.com/smcen/registrar/internal/domain/transcript"
	"github.com/smcen/registrar/internal/infrastructure/export"
	"github.com/smcen/registrar/internal/infrastructure/persistence/postgres"
	"github.com/smcen/registrar/pkg/logger"
	"github.com/smcen/registrar/pkg/retry"
)

const usage = `usage: gradebook <command> [flags]

commands:
  migrate     apply pending schema migrations
  report      print SGPA and CGPA for every student
  export      write a transcript archive
  recompute   re-derive every stored grade from its score
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		color.Red("gradebook: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	opts := logger.DefaultOptions()
	opts.Output = os.Stderr
	opts.Format = logger.FormatText
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	log := logger.New(opts).With(logger.Component("gradebook"))

	conn, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	name, rest := args[0], args[1:]
	switch name {
	case "migrate":
		return runMigrate(ctx, conn, rest, out)
	case "report":
		return runReport(ctx, conn, rest, out)
	case "export":
		return runExport(ctx, cfg, conn, log, rest, out)
	case "recompute":
		return runRecompute(ctx, cfg, conn, log, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = 4
	pgCfg.MinConns = 1
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout

	var conn *postgres.Connection
	err := retry.ConnectRetrier(max(cfg.Database.ConnectAttempts, 1), func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready", logger.Int("attempt", attempt), logger.Duration("retry_in", delay), logger.Err(err))
	}).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, pgCfg)
		if errors.Is(err, postgres.ErrInvalidURL) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBCOMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func runMigrate(ctx context.Context, conn *postgres.Connection, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	status := fs.Bool("status", false, "list migrations without applying them")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	m := postgres.NewMigrator(conn)
	if *status {
		migrations, err := m.Status(ctx)
		if err != nil {
			return err
		}
		printMigrations(out, migrations)
		return nil
	}

	applied, err := m.Migrate(ctx)
	if err != nil {
		return err
	}
	if applied == 0 {
		color.New(color.FgYellow).Fprintln(out, "schema already up to date")
		return nil
	}
	color.New(color.FgGreen).Fprintf(out, "applied %d migration(s)\n", applied)
	return nil
}

func runReport(ctx context.Context, conn *postgres.Connection, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	semester := fs.String("semester", "all", "I, II or all")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	sel, err := grading.ParseSelector(*semester)
	if err != nil {
		return err
	}

	rows, err := query.NewGradeReportHandler(postgres.NewStudentRepository(conn), grading.CanonicalScale, grading.CanonicalCatalog).
		Handle(ctx, *semester)
	if err != nil {
		return err
	}

	printReport(out, sel, rows)
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, conn *postgres.Connection, log *logger.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	path := fs.String("out", "", "archive path")
	semester := fs.String("semester", "all", "I, II or all")
	ids := fs.String("ids", "", "comma separated student ids, default every student")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *path == "" {
		return fmt.Errorf("%w: -out is required", errUsage)
	}

	institution := transcript.DefaultInstitution()
	if len(cfg.Export.HeaderLines) > 0 {
		institution.HeaderLines = cfg.Export.HeaderLines
	}
	if cfg.Export.SignatoryTitle != "" {
		institution.SignatoryTitle = cfg.Export.SignatoryTitle
	}
	institution.Location = cfg.App.Location

	h := query.NewExportTranscriptsHandler(
		postgres.NewStudentRepository(conn),
		transcript.NewFormatter(grading.CanonicalScale, grading.CanonicalCatalog, institution),
		export.NewPDFEncoder(export.DefaultPDFConfig()),
		cfg.Features,
		query.ExportConfig{Workers: cfg.Export.Workers, Timeout: cfg.Export.Timeout},
		func() time.Time { return time.Now().In(cfg.App.Location) },
		log,
	)

	f, err := os.Create(*path)
	if err != nil {
		return err
	}

	res, err := h.Handle(ctx, query.ExportTranscriptsQuery{StudentIDs: splitList(*ids), Semester: *semester}, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(*path)
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "wrote %d of %d transcript(s) to %s in %s\n",
		res.Written, res.Requested, *path, res.Elapsed.Round(time.Millisecond))
	for _, fl := range res.Failures {
		color.New(color.FgRed).Fprintf(out, "  %s: %v\n", fl.Name, fl.Err)
	}
	return nil
}

func runRecompute(ctx context.Context, cfg *config.Config, conn *postgres.Connection, log *logger.Logger, out io.Writer) error {
	h := command.NewRegradeAllHandler(
		postgres.NewStudentRepository(conn),
		grading.CanonicalScale,
		grading.CanonicalCatalog,
		func() time.Time { return time.Now().In(cfg.App.Location) },
		log,
	)

	res, err := h.Handle(ctx)
	if err != nil {
		return err
	}

	c := color.New(color.FgGreen)
	if res.Failed > 0 {
		c = color.New(color.FgYellow)
	}
	c.Fprintf(out, "scanned %d, updated %d, failed %d in %s\n",
		res.Scanned, res.Updated, res.Failed, res.Elapsed.Round(time.Millisecond))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ══════════════════════════════════════════════════════════════════════════════

func printReport(out io.Writer, sel grading.Selector, rows []query.GradeReportRow) {
	semesters := sel.Semesters()

	header := []string{"Reg Number", "Name"}
	for _, s := range semesters {
		header = append(header, "Sem "+string(s)+" Credits", "Sem "+string(s)+" SGPA", "Sem "+string(s)+" Result")
	}
	header = append(header, "CGPA")

	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		line := []string{row.RegistrationNumber, row.Name}
		for _, s := range semesters {
			agg, ok := findAggregate(row.Semesters, s)
			if !ok {
				line = append(line, "-", "-", "-")
				continue
			}
			line = append(line, strconv.Itoa(agg.TotalCredits), formatGPA(agg.SGPA), resultLabel(agg))
		}
		line = append(line, formatGPA(row.CumulativeGPA))
		table.Append(line)
	}

	table.SetFooter(footer(len(header), len(rows)))
	table.Render()
}

func printMigrations(out io.Writer, migrations []postgres.Migration) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Version", "Name", "Applied"})
	for _, m := range migrations {
		applied := "pending"
		if m.IsApplied {
			applied = m.AppliedAt.Format(time.RFC3339)
		}
		table.Append([]string{strconv.Itoa(m.Version), m.Name, applied})
	}
	table.Render()
}

func findAggregate(aggs []grading.SemesterAggregate, s grading.Semester) (grading.SemesterAggregate, bool) {
	for _, a := range aggs {
		if a.Semester == s {
			return a, true
		}
	}
	return grading.SemesterAggregate{}, false
}

func resultLabel(agg grading.SemesterAggregate) string {
	switch {
	case agg.Incomplete:
		return "INCOMPLETE"
	case agg.Passed:
		return "PASS"
	default:
		return "FAIL"
	}
}

func formatGPA(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func footer(width, students int) []string {
	f := make([]string, width)
	f[0] = "Students"
	f[1] = strconv.Itoa(students)
	return f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
