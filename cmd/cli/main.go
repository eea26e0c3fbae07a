package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"studyqc/adapters/excel"
	"studyqc/adapters/postgres"
	"studyqc/adapters/postgres/migrations"
	"studyqc/app"
	"studyqc/domain/core"
	"studyqc/domain/qc"
	"studyqc/domain/report"
	"studyqc/httpapi"
	"studyqc/internal"
	"studyqc/internal/config"
	"studyqc/internal/profiling"
	"studyqc/internal/testkit"
	"studyqc/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studyqc",
		Short: "StudyQC CLI for rule-driven clinical study QC",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newProfileCmd(),
		newGenCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var study string
	var dataRef, changesRef, warningsRef, dictRef string
	var dataSheet, changeSheet, warningSheet, dictSheet string
	var outRef, flaggedRef, reportRef string
	var profile bool

	cmd := &cobra.Command{
		Use:   "run [workbook]",
		Short: "Run QC for one study",
		Long: `Run the full QC pipeline for one study: load the dataset and rule
tables, apply change rules, apply warning rules, and export the corrected
dataset, flagged subset, and report.

With a workbook argument the tables are read from its sheets (override the
sheet names with flags). Without one, pass each table ref explicitly; a ref
is a file path with an optional "#sheet" suffix.

Examples:
  studyqc run study.xlsx --study DEMO-01 --out out/corrected.xlsx
  studyqc run --data data.csv --changes changes.csv --warnings warnings.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				wb := args[0]
				if dataRef == "" {
					dataRef = sheetRef(wb, dataSheet)
				}
				if changesRef == "" {
					changesRef = sheetRef(wb, changeSheet)
				}
				if warningsRef == "" {
					warningsRef = sheetRef(wb, warningSheet)
				}
				if dictRef == "" && cmd.Flags().Changed("dict-sheet") {
					dictRef = sheetRef(wb, dictSheet)
				}
			}
			if dataRef == "" || changesRef == "" || warningsRef == "" {
				return fmt.Errorf("run needs a workbook argument or --data, --changes, and --warnings")
			}
			if study == "" {
				study = studyKeyFromRef(dataRef)
			}

			req := app.RunRequest{
				StudyKey:        core.StudyKey(study),
				DatasetRef:      dataRef,
				ChangeRulesRef:  changesRef,
				WarningRulesRef: warningsRef,
				DictionaryRef:   dictRef,
				OutputRef:       outRef,
				FlaggedRef:      flaggedRef,
				ReportRef:       reportRef,
				Profile:         profile,
			}
			return runQC(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVar(&study, "study", "", "Study key (default: data file name)")
	cmd.Flags().StringVar(&dataRef, "data", "", "Dataset ref")
	cmd.Flags().StringVar(&changesRef, "changes", "", "Change rules ref")
	cmd.Flags().StringVar(&warningsRef, "warnings", "", "Warning rules ref")
	cmd.Flags().StringVar(&dictRef, "dict", "", "Data dictionary ref")
	cmd.Flags().StringVar(&dataSheet, "data-sheet", "data", "Dataset sheet in the workbook")
	cmd.Flags().StringVar(&changeSheet, "change-sheet", "changes", "Change rules sheet in the workbook")
	cmd.Flags().StringVar(&warningSheet, "warning-sheet", "warnings", "Warning rules sheet in the workbook")
	cmd.Flags().StringVar(&dictSheet, "dict-sheet", "dictionary", "Dictionary sheet in the workbook")
	cmd.Flags().StringVar(&outRef, "out", "", "Corrected dataset destination (.csv or .xlsx)")
	cmd.Flags().StringVar(&flaggedRef, "flagged", "", "Flagged subset destination (.csv or .xlsx)")
	cmd.Flags().StringVar(&reportRef, "report", "", "Report destination (.md, .html, or .json)")
	cmd.Flags().BoolVar(&profile, "profile", false, "Profile numeric columns of the corrected dataset")

	return cmd
}

func newBatchCmd() *cobra.Command {
	var outDir string
	var concurrency int
	var dataSheet, changeSheet, warningSheet, dictSheet string
	var withDict bool
	var profile bool

	cmd := &cobra.Command{
		Use:   "batch [workbook-dir]",
		Short: "Run QC for every workbook in a directory",
		Long: `Run QC for every workbook (.xlsx, .xlsm) in a directory, a bounded
number at a time. Each workbook is one study keyed by its file name, with the
dataset and rule tables read from its sheets. Outputs land in one
subdirectory per study under the output directory.

Example: studyqc batch ./studies --out out --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets := workbookSheets{
				data:     dataSheet,
				changes:  changeSheet,
				warnings: warningSheet,
				dict:     dictSheet,
				withDict: withDict,
			}
			return runBatch(cmd.Context(), args[0], outDir, sheets, concurrency, profile)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "out", "Output directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Studies processed in parallel")
	cmd.Flags().StringVar(&dataSheet, "data-sheet", "data", "Dataset sheet in each workbook")
	cmd.Flags().StringVar(&changeSheet, "change-sheet", "changes", "Change rules sheet in each workbook")
	cmd.Flags().StringVar(&warningSheet, "warning-sheet", "warnings", "Warning rules sheet in each workbook")
	cmd.Flags().StringVar(&dictSheet, "dict-sheet", "dictionary", "Dictionary sheet in each workbook")
	cmd.Flags().BoolVar(&withDict, "with-dict", false, "Read the dictionary sheet from each workbook")
	cmd.Flags().BoolVar(&profile, "profile", false, "Profile numeric columns of each corrected dataset")

	return cmd
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [data-ref]",
		Short: "Profile a dataset's numeric columns",
		Long: `Compute descriptive statistics for every numeric column of a dataset:
count, missingness, central tendency, spread, shape, and IQR outliers.

Example: studyqc profile study.xlsx#data`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), args[0])
		},
	}

	return cmd
}

func newGenCmd() *cobra.Command {
	var out string
	var format string
	var rows int
	var seed int64

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic study workbook",
		Long: `Generate a synthetic study with known data-entry defects injected at
fixed rates, plus the rule tables and dictionary that exercise them. The
default output is a workbook the run command can process as-is:

  studyqc gen --out demo.xlsx --rows 200
  studyqc run demo.xlsx --out out/corrected.xlsx

With --format csv the four tables are written as CSV files in a directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), out, format, rows, seed)
		},
	}

	cmd.Flags().StringVar(&out, "out", "study.xlsx", "Output workbook path (directory with --format csv)")
	cmd.Flags().StringVar(&format, "format", "xlsx", "Output format: xlsx or csv")
	cmd.Flags().IntVar(&rows, "rows", 200, "Number of subject rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed (deterministic)")

	return cmd
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the QC API server",
		Long: `Start the HTTP API configured from the environment. DATABASE_URL
enables run history; without it runs execute but are not recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")

	return cmd
}

func runQC(ctx context.Context, req app.RunRequest) error {
	logger := internal.NewDefaultLogger()
	source := excel.NewStudySource(logger)
	writer := excel.NewWriter(logger)
	svc := app.NewQCService(source, writer, writer, nil, logger)

	fmt.Printf("Running QC for study %s...\n", req.StudyKey)

	res, err := svc.RunStudy(ctx, req)
	if err != nil {
		return fmt.Errorf("qc run failed: %w", err)
	}

	printReport(res.Report)

	if req.OutputRef != "" || req.FlaggedRef != "" || req.ReportRef != "" {
		fmt.Println()
		if req.OutputRef != "" {
			fmt.Printf("💾 Corrected dataset: %s\n", req.OutputRef)
		}
		if req.FlaggedRef != "" {
			fmt.Printf("💾 Flagged subset: %s\n", req.FlaggedRef)
		}
		if req.ReportRef != "" {
			fmt.Printf("💾 Report: %s\n", req.ReportRef)
		}
	}

	if res.Report.Clean() {
		fmt.Printf("\n✅ CLEAN RUN: nothing corrected, nothing flagged\n")
	} else {
		fmt.Printf("\n✅ QC RUN COMPLETED\n")
	}

	return nil
}

type workbookSheets struct {
	data     string
	changes  string
	warnings string
	dict     string
	withDict bool
}

func runBatch(ctx context.Context, dir, outDir string, sheets workbookSheets, concurrency int, profile bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var requests []app.RunRequest
	for _, entry := range entries {
		if entry.IsDir() || !isWorkbook(entry.Name()) {
			continue
		}
		wb := filepath.Join(dir, entry.Name())
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		req := app.RunRequest{
			StudyKey:        core.StudyKey(stem),
			DatasetRef:      sheetRef(wb, sheets.data),
			ChangeRulesRef:  sheetRef(wb, sheets.changes),
			WarningRulesRef: sheetRef(wb, sheets.warnings),
			OutputRef:       filepath.Join(outDir, stem, "corrected.xlsx"),
			FlaggedRef:      filepath.Join(outDir, stem, "flagged.csv"),
			ReportRef:       filepath.Join(outDir, stem, "report.md"),
			Profile:         profile,
		}
		if sheets.withDict {
			req.DictionaryRef = sheetRef(wb, sheets.dict)
		}
		requests = append(requests, req)
	}
	if len(requests) == 0 {
		return fmt.Errorf("no workbooks found in %s", dir)
	}

	fmt.Printf("Running QC for %d studies from %s...\n", len(requests), dir)

	logger := internal.NewDefaultLogger()
	source := excel.NewStudySource(logger)
	writer := excel.NewWriter(logger)
	svc := app.NewQCService(source, writer, writer, nil, logger)
	batchSvc := app.NewBatchService(svc, concurrency, logger)

	res := batchSvc.RunBatch(ctx, requests)

	fmt.Printf("\n=== BATCH RESULTS ===\n")
	fmt.Printf("Studies: %d\n", len(res.Outcomes))
	fmt.Printf("Succeeded: %d\n", res.Succeeded)
	fmt.Printf("Failed: %d\n", res.Failed)
	fmt.Printf("Runtime: %d ms\n", res.RuntimeMs)

	fmt.Printf("\n=== STUDY OUTCOMES ===\n")
	for i, out := range res.Outcomes {
		if out.Err != nil {
			fmt.Printf("%d. ❌ %s: %v\n", i+1, out.StudyKey, out.Err)
			continue
		}
		fmt.Printf("%d. ✅ %s: %d changes, %d warnings, %d flagged rows\n",
			i+1, out.StudyKey,
			out.Report.Summary.TotalChanges(),
			out.Report.Summary.TotalWarnings(),
			out.Report.Flagged.Rows)
	}

	fmt.Printf("\nOutputs written under %s\n", outDir)

	if res.Failed > 0 {
		return fmt.Errorf("%d of %d studies failed", res.Failed, len(res.Outcomes))
	}
	return nil
}

func runProfile(ctx context.Context, ref string) error {
	logger := internal.NewDefaultLogger()
	source := excel.NewStudySource(logger)

	ds, err := source.ReadDataset(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	profiles := profiling.NewProfiler().ProfileDataset(ds)

	fmt.Printf("\n=== COLUMN PROFILES ===\n")
	fmt.Printf("Dataset: %s (%d rows x %d columns)\n", ref, len(ds.Rows), len(ds.Columns))

	if len(profiles) == 0 {
		fmt.Println("No numeric columns with enough observations to profile.")
		return nil
	}
	printProfiles(profiles)

	return nil
}

func runGen(ctx context.Context, out, format string, rows int, seed int64) error {
	cfg := testkit.DefaultGeneratorConfig()
	cfg.Rows = rows
	cfg.Seed = seed

	study, err := testkit.NewStudyGenerator(cfg).Generate()
	if err != nil {
		return fmt.Errorf("failed to generate study: %w", err)
	}

	writer := excel.NewWriter(internal.NewDefaultLogger())

	tables := []excel.Sheet{
		{Name: "data", Data: study.Dataset},
		{Name: "changes", Data: testkit.ChangeRulesTable(study.ChangeRules)},
		{Name: "warnings", Data: testkit.WarningRulesTable(study.WarningRules)},
		{Name: "dictionary", Data: testkit.DictionaryTable(study.Dictionary)},
	}

	switch strings.ToLower(format) {
	case "xlsx":
		if err := writer.WriteWorkbook(ctx, out, tables); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
	case "csv":
		for _, sheet := range tables {
			path := filepath.Join(out, sheet.Name+".csv")
			if err := writer.WriteDataset(ctx, path, sheet.Data); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
	default:
		return fmt.Errorf("unsupported format: %s (use xlsx or csv)", format)
	}

	fmt.Printf("Synthetic study written to %s\n", out)
	fmt.Printf("Rows: %d | Change Rules: %d | Warning Rules: %d | Dictionary Variables: %d\n",
		study.Dataset.RowCount(), len(study.ChangeRules), len(study.WarningRules), study.Dictionary.Len())

	return nil
}

func runServe(ctx context.Context, portOverride string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if portOverride != "" {
		cfg.Server.Port = portOverride
	}

	logger := internal.NewDefaultLogger()

	var db *sqlx.DB
	var runs ports.RunRepository
	if cfg.Database.Enabled {
		db, err = sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := migrations.NewMigrator(db.DB).Up(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		runs = postgres.NewRunRepository(db)
		log.Println("✅ Run history enabled")
	} else {
		log.Println("⚠️ DATABASE_URL not set, run history disabled")
	}

	source := excel.NewStudySource(logger)
	writer := excel.NewWriter(logger)
	qcService := app.NewQCService(source, writer, writer, runs, logger)
	batchService := app.NewBatchService(qcService, cfg.Batch.Concurrency, logger)

	gin.SetMode(cfg.Server.GinMode)
	server := httpapi.NewServer(qcService, batchService, runs, cfg.Study, logger)

	if cfg.Ops.Enabled {
		ready := func() bool { return true }
		if db != nil {
			ready = func() bool { return db.Ping() == nil }
		}
		ops := httpapi.NewOpsRouter(ready)
		go func() {
			log.Printf("🔧 Ops endpoints on port %s (healthz, readyz, debug/pprof)", cfg.Ops.Port)
			if err := http.ListenAndServe(":"+cfg.Ops.Port, ops); err != nil {
				log.Printf("❌ ops server failed: %v", err)
			}
		}()
	}

	log.Printf("🚀 Starting StudyQC server on port %s", cfg.Server.Port)
	return server.Start(":" + cfg.Server.Port)
}

func printReport(rep report.Report) {
	fmt.Printf("\n=== QC RUN RESULTS ===\n")
	fmt.Printf("Run ID: %s\n", rep.RunID)
	fmt.Printf("Study: %s\n", rep.StudyKey)
	fmt.Printf("Input: %d rows x %d columns\n", rep.Input.Rows, rep.Input.Columns)
	fmt.Printf("Output: %d rows x %d columns\n", rep.Output.Rows, rep.Output.Columns)
	fmt.Printf("Flagged Rows: %d\n", rep.Flagged.Rows)
	fmt.Printf("Rules Loaded: %d change, %d warning\n", rep.ChangeRules, rep.WarningRules)
	fmt.Printf("Fingerprint: %s → %s\n", rep.Input.Fingerprint, rep.Output.Fingerprint)

	if rep.Summary.TotalChanges() > 0 {
		fmt.Printf("\n=== CORRECTIONS (%d) ===\n", rep.Summary.TotalChanges())
		for i, comment := range qc.SortedComments(rep.Summary.ChangeCounts) {
			fmt.Printf("%d. %s: %d\n", i+1, comment, rep.Summary.ChangeCounts[comment])
		}
	}

	if rep.Summary.TotalWarnings() > 0 {
		fmt.Printf("\n=== REVIEW FLAGS (%d) ===\n", rep.Summary.TotalWarnings())
		for i, comment := range qc.SortedComments(rep.Summary.WarningCounts) {
			fmt.Printf("%d. %s: %d\n", i+1, comment, rep.Summary.WarningCounts[comment])
		}
	}

	if len(rep.Summary.MissingVariables) > 0 {
		fmt.Printf("\n⚠️ MISSING DICTIONARY VARIABLES:\n")
		for _, v := range rep.Summary.MissingVariables {
			fmt.Printf("• %s\n", v)
		}
	}

	if len(rep.Renames) > 0 {
		fmt.Printf("\n=== COLUMN RENAMES ===\n")
		for _, r := range rep.Renames {
			fmt.Printf("• %s → %s\n", r.From, r.To)
		}
	}

	if len(rep.Events) > 0 {
		fmt.Printf("\n=== SKIPPED RULES AND FAILURES ===\n")
		for i, ev := range rep.Events {
			fmt.Printf("%d. [%s] %s\n", i+1, ev.Kind, ev.Rule)
			fmt.Printf("   %s\n", ev.Detail)
		}
	}

	if len(rep.Profiles) > 0 {
		fmt.Printf("\n=== COLUMN PROFILES ===\n")
		printProfiles(rep.Profiles)
	}
}

func printProfiles(profiles []report.ColumnProfile) {
	for i, p := range profiles {
		fmt.Printf("%d. %s\n", i+1, p.Column)
		fmt.Printf("   N: %d | Missing: %d | Outliers: %d\n", p.Count, p.Missing, p.Outliers)
		fmt.Printf("   Mean: %.3f | Median: %.3f | SD: %.3f | Range: [%.3f, %.3f]\n",
			p.Mean, p.Median, p.StdDev, p.Min, p.Max)
		fmt.Printf("   Skew: %.3f | Kurtosis: %.3f | Normality P: %.4f\n",
			p.Skewness, p.Kurtosis, p.NormalP)
	}
}

func sheetRef(path, sheet string) string {
	if sheet == "" {
		return path
	}
	return path + "#" + sheet
}

func studyKeyFromRef(ref string) string {
	path := ref
	if i := strings.LastIndex(ref, "#"); i >= 0 {
		path = ref[:i]
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isWorkbook(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xlsm"
}
