package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monoforge/monoforge/internal/action"
	"github.com/monoforge/monoforge/internal/config"
	"github.com/monoforge/monoforge/internal/domain"
	"github.com/monoforge/monoforge/internal/graph"
	"github.com/monoforge/monoforge/internal/orchestrator"
	"github.com/monoforge/monoforge/internal/runstore"
	"github.com/monoforge/monoforge/internal/schedule"
	"github.com/monoforge/monoforge/internal/selection"
	"github.com/monoforge/monoforge/internal/watcher"
	"github.com/monoforge/monoforge/internal/workspace"
)

var (
	excludeNames []string
	jobs         int
	policyFlag   string
	noLock       bool
	retryFailed  bool
	historyLimit int
	cronExpr     string
)

func init() {
	installCmd := &cobra.Command{
		Use:   "install [PACKAGE...]",
		Short: "Install packages in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), domain.ActionInstall, args)
		},
	}
	buildCmd := &cobra.Command{
		Use:   "build [PACKAGE...]",
		Short: "Build packages in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), domain.ActionBuild, args)
		},
	}
	for _, c := range []*cobra.Command{installCmd, buildCmd} {
		c.Flags().StringSliceVarP(&excludeNames, "exclude", "e", nil, "packages to exclude")
		c.Flags().IntVarP(&jobs, "jobs", "j", 0, "max concurrent package actions")
		c.Flags().StringVar(&policyFlag, "policy", "", "failure policy: fail-branch, continue-independent, fail-fast")
		c.Flags().BoolVar(&noLock, "no-lock", false, "do not pin constraints to locked versions")
		c.Flags().BoolVar(&retryFailed, "retry-failed", false, "select the packages that failed in the last run")
		rootCmd.AddCommand(c)
	}

	planCmd := &cobra.Command{
		Use:   "plan [PACKAGE...]",
		Short: "Show the execution plan without running anything",
		RunE:  runPlan,
	}
	planCmd.Flags().StringSliceVarP(&excludeNames, "exclude", "e", nil, "packages to exclude")
	rootCmd.AddCommand(planCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List packages",
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the dependency graph",
		RunE:  runGraph,
	}
	rootCmd.AddCommand(graphCmd)

	historyCmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show recorded runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-install on manifest changes",
		RunE:  runWatch,
	}
	watchCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "max concurrent package actions")
	rootCmd.AddCommand(watchCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run periodic full installs on a cron schedule",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "0 3 * * *", "cron expression")
	scheduleCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "max concurrent package actions")
	rootCmd.AddCommand(scheduleCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// loadRepo locates the monorepo root, loads every manifest and builds the
// validated dependency graph. Any manifest or graph error aborts here,
// before anything is scheduled.
func loadRepo() (*workspace.Workspace, *graph.Graph, error) {
	root, err := workspace.FindRoot(repoDir)
	if err != nil {
		return nil, nil, err
	}
	ws, err := workspace.Load(root)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(ws.Packages())
	if err != nil {
		return nil, nil, err
	}
	return ws, g, nil
}

func runAction(ctx context.Context, act domain.Action, include []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ws, g, err := loadRepo()
	if err != nil {
		return err
	}

	if retryFailed {
		failed, err := lastFailedPackages(cfg)
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			fmt.Println("No failed packages in the last run")
			return nil
		}
		include = append(include, failed...)
	}

	selected, err := selection.Resolve(g, include, excludeNames)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Println("No packages selected")
		return nil
	}

	report, err := execute(ctx, cfg, ws, g, act, selected)
	if err != nil {
		return err
	}

	printReport(os.Stdout, g, report)

	if err := recordRun(cfg.General.DatabasePath, report); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
	}

	if !report.OK() {
		_, failed, skipped := report.Counts()
		return fmt.Errorf("%d failed, %d skipped", failed, skipped)
	}
	return nil
}

func execute(ctx context.Context, cfg *config.Config, ws *workspace.Workspace, g *graph.Graph, act domain.Action, selected map[string]bool) (*domain.Report, error) {
	policy, ok := domain.ParsePolicy(firstNonEmpty(policyFlag, cfg.General.FailurePolicy))
	if !ok {
		return nil, fmt.Errorf("unknown failure policy %q", policyFlag)
	}

	command := cfg.Tools.InstallCmd
	if act == domain.ActionBuild {
		command = cfg.Tools.BuildCmd
	}

	maxJobs := jobs
	if maxJobs <= 0 {
		maxJobs = cfg.General.MaxParallelJobs
	}

	orch := orchestrator.New(orchestrator.Config{
		Graph:    g,
		Selected: selected,
		Action:   act,
		Runner:   &action.Exec{Command: command, Root: ws.Root},
		Shared:   ws.Shared(),
		Lock:     ws.Lock(),
		Synth:    synthOptions(),
		Jobs:     maxJobs,
		Policy:   policy,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := orch.Run(ctx)
	if err == context.Canceled && report != nil {
		fmt.Fprintln(os.Stderr, "interrupted; in-flight packages were allowed to finish")
		return report, nil
	}
	return report, err
}

func runPlan(cmd *cobra.Command, args []string) error {
	_, g, err := loadRepo()
	if err != nil {
		return err
	}
	selected, err := selection.Resolve(g, args, excludeNames)
	if err != nil {
		return err
	}

	for i, batch := range g.Batches(selected) {
		fmt.Printf("%d. %s\n", i+1, strings.Join(batch, " "))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	_, g, err := loadRepo()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tWORKSPACE\tPATH")
	for _, name := range g.Names() {
		pkg, _ := g.Package(name)
		ws := pkg.Workspace
		if ws == "" {
			ws = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pkg.Name, pkg.Version, ws, pkg.Path)
	}
	return w.Flush()
}

func runGraph(cmd *cobra.Command, args []string) error {
	_, g, err := loadRepo()
	if err != nil {
		return err
	}

	for _, name := range g.Order() {
		deps := g.Deps(name)
		if len(deps) == 0 {
			fmt.Println(name)
			continue
		}
		fmt.Printf("%s -> %s\n", name, strings.Join(deps, " "))
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		results, err := store.RunResults(args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PACKAGE\tSTATUS\tDURATION\tERROR")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Package, r.Status, r.Duration.Round(timeUnit), r.Error)
		}
		return w.Flush()
	}

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tACTION\tSTARTED\tPACKAGES\tOK\tFAILED\tSKIPPED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			run.ID, run.Action, run.StartedAt.Format("2006-01-02 15:04:05"),
			len(run.Packages), run.Succeeded, run.Failed, run.Skipped)
	}
	return w.Flush()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := workspace.FindRoot(repoDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trigger := make(chan []string, 1)
	w, err := watcher.New(root, func(changed []string) {
		select {
		case trigger <- changed:
		default:
		}
	})
	if err != nil {
		return err
	}
	w.Start(ctx)
	defer w.Stop()

	fmt.Printf("Watching %s for manifest changes\n", root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-trigger:
			fmt.Printf("Changed: %s\n", strings.Join(changed, " "))
			if err := watchRun(ctx, cfg); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}
}

// watchRun reloads the workspace from scratch and installs everything.
// The graph is always rebuilt fresh; nothing persists across runs.
func watchRun(ctx context.Context, cfg *config.Config) error {
	ws, g, err := loadRepo()
	if err != nil {
		return err
	}
	selected, err := selection.Resolve(g, nil, nil)
	if err != nil {
		return err
	}
	report, err := execute(ctx, cfg, ws, g, domain.ActionInstall, selected)
	if err != nil {
		return err
	}
	printReport(os.Stdout, g, report)
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sched, err := schedule.New(cronExpr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Scheduled install (%s), next run %s\n", cronExpr, sched.NextRun().Format("2006-01-02 15:04:05"))
	sched.Start(ctx, func(ctx context.Context) error {
		return watchRun(ctx, cfg)
	}, func(err error) {
		fmt.Fprintf(os.Stderr, "scheduled run failed: %v\n", err)
	})
	return nil
}

// recordRun appends the report to the run history database. Recording is
// best-effort; the caller warns instead of failing the run.
func recordRun(dbPath string, report *domain.Report) error {
	store, err := runstore.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveReport(report)
}

func lastFailedPackages(cfg *config.Config) ([]string, error) {
	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LastFailures()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
