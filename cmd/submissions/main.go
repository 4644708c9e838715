// cmd/submissions/main.go
//
// Batch access to the submission store of a project:
//
//	submissions [-project dir] list [-status pending]
//	submissions [-project dir] stats
//	submissions [-project dir] evaluate -id ID -decision approve|reject [-notes text] [-by name]
//	submissions [-project dir] export [-id ID]... [-all] [-format markdown|json] [-out dir]
//	submissions [-project dir] import -file export.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/digital-seeds-4/preincubation/internal/catalog"
	"github.com/digital-seeds-4/preincubation/internal/config"
	"github.com/digital-seeds-4/preincubation/internal/dossier"
	"github.com/digital-seeds-4/preincubation/internal/evaluation"
	"github.com/digital-seeds-4/preincubation/internal/logbook"
	"github.com/digital-seeds-4/preincubation/internal/store"
	"github.com/digital-seeds-4/preincubation/internal/submission"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	store    store.Store
	workflow *evaluation.Workflow
	log      *logbook.Logbook
	out      io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("submissions", flag.ContinueOnError)
	global.SetOutput(out)
	projectDir := global.String("project", "", "path to the project directory (defaults to cwd)")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: submissions [-project dir] <list|stats|evaluate|export|import> [flags]")
	}

	e, err := openEnv(ctx, *projectDir, out)
	if err != nil {
		return err
	}
	defer e.store.Close()

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "list":
		return e.list(ctx, cmdArgs)
	case "stats":
		return e.stats(ctx)
	case "evaluate":
		return e.evaluate(ctx, cmdArgs)
	case "export":
		return e.export(ctx, cmdArgs)
	case "import":
		return e.importFile(ctx, cmdArgs)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func openEnv(ctx context.Context, projectDir string, out io.Writer) (*env, error) {
	project := projectDir
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		project = cwd
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitIncubatorDir(absoluteProject); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.IncubatorDir, err)
	}
	cfg, err := config.NewConfig(absoluteProject)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cat, err := catalog.LoadOrDefault(cfg.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	book, err := logbook.New(cfg.JourneyLogPath())
	if err != nil {
		book = nil
	}
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	wf, err := evaluation.New(st, evaluation.WithLogbook(book))
	if err != nil {
		st.Close()
		return nil, err
	}
	return &env{cfg: cfg, catalog: cat, store: st, workflow: wf, log: book, out: out}, nil
}

func (e *env) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.out)
	return fs
}

func (e *env) list(ctx context.Context, args []string) error {
	fs := e.flagSet("list")
	status := fs.String("status", "all", "filter: all, pending, evaluated, approved or rejected")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := evaluation.ParseFilter(*status)
	if err != nil {
		return err
	}
	subs, err := e.workflow.List(ctx, filter)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tUSER\tMATURITY\tSTATUS\tSUBMITTED\tEVALUATED BY")
	for _, sub := range subs {
		by := sub.Evaluator()
		if by == "" {
			by = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
			sub.ID, sub.ProjectName, sub.UserName, sub.MaturityScore, sub.Status,
			sub.SubmittedAt.Format("2006-01-02 15:04"), by)
	}
	return w.Flush()
}

func (e *env) stats(ctx context.Context) error {
	stats, err := e.workflow.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "total: %d\n", stats.Total)
	for _, status := range submission.Statuses {
		fmt.Fprintf(e.out, "%s: %d\n", status, stats.Count(status))
	}
	fmt.Fprintf(e.out, "average maturity: %d%%\n", stats.AverageScore)
	return nil
}

func (e *env) evaluate(ctx context.Context, args []string) error {
	fs := e.flagSet("evaluate")
	id := fs.String("id", "", "submission id")
	decisionFlag := fs.String("decision", "", "approve or reject")
	notes := fs.String("notes", "", "evaluation notes")
	by := fs.String("by", e.cfg.Reviewer(), "evaluator identity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("evaluate: -id is required")
	}
	decision, err := evaluation.ParseDecision(*decisionFlag)
	if err != nil {
		return err
	}
	sub, err := e.workflow.Evaluate(ctx, *id, decision, *notes, *by)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("evaluate: submission %s not found", *id)
		}
		return err
	}
	fmt.Fprintf(e.out, "%s (%s) %s by %s\n", sub.ID, sub.ProjectName, sub.Status, sub.Evaluator())
	return nil
}

func (e *env) export(ctx context.Context, args []string) error {
	fs := e.flagSet("export")
	var ids stringList
	fs.Var(&ids, "id", "submission id to export (repeatable)")
	all := fs.Bool("all", false, "export every submission")
	formatFlag := fs.String("format", "markdown", "markdown or json")
	outDir := fs.String("out", e.cfg.ExportsDir(), "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := dossier.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	if len(ids) == 0 && !*all {
		return fmt.Errorf("export: pass -id or -all")
	}
	exporter, err := dossier.New(e.catalog)
	if err != nil {
		return err
	}

	var subs []submission.Submission
	if *all {
		subs, err = e.store.List(ctx)
		if err != nil {
			return err
		}
	} else {
		for _, id := range ids {
			sub, err := e.store.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("export %s: %w", id, err)
			}
			subs = append(subs, sub)
		}
	}

	if *all && format == dossier.FormatJSON {
		data, err := exporter.Collection(subs)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(*outDir, "submissions-export.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		e.log.Info("Exported %d submission(s) to %s", len(subs), path)
		fmt.Fprintln(e.out, path)
		return nil
	}
	for _, sub := range subs {
		path, err := exporter.Write(*outDir, sub, format)
		if err != nil {
			return err
		}
		e.log.Info("Dossier for %s exported to %s", sub.ID, path)
		fmt.Fprintln(e.out, path)
	}
	return nil
}

func (e *env) importFile(ctx context.Context, args []string) error {
	fs := e.flagSet("import")
	file := fs.String("file", "", "collection produced by export -all -format json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return fmt.Errorf("import: -file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	collection, err := dossier.ReadCollection(data)
	if err != nil {
		return err
	}
	imported, skipped := 0, 0
	for _, sub := range collection.Submissions {
		err := e.importOne(ctx, sub)
		var final *finalRecordError
		switch {
		case errors.As(err, &final):
			skipped++
			e.log.Warn("Import of %s skipped: stored record is already %s", sub.ID, final.status)
			fmt.Fprintf(e.out, "skipped %s: already %s\n", sub.ID, final.status)
		case err != nil:
			return fmt.Errorf("import %s: %w", sub.ID, err)
		default:
			imported++
		}
	}
	e.log.Info("Imported %d submission(s) from %s (%d skipped)", imported, *file, skipped)
	fmt.Fprintf(e.out, "imported %d submission(s), skipped %d\n", imported, skipped)
	return nil
}

type finalRecordError struct {
	status submission.Status
}

func (e *finalRecordError) Error() string {
	return fmt.Sprintf("stored record is already %s", e.status)
}

// importOne creates sub, or replaces the stored record while it is still
// pending. An evaluated record is never overwritten.
func (e *env) importOne(ctx context.Context, sub submission.Submission) error {
	_, err := e.store.Get(ctx, sub.ID)
	if errors.Is(err, store.ErrNotFound) {
		return e.store.Save(ctx, sub)
	}
	if err != nil {
		return err
	}
	_, err = e.store.Update(ctx, sub.ID, func(current *submission.Submission) error {
		if current.Status != submission.StatusPending {
			return &finalRecordError{status: current.Status}
		}
		*current = sub.Clone()
		return nil
	})
	return err
}

type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ", ")
}

func (l *stringList) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("empty value")
	}
	*l = append(*l, value)
	return nil
}
