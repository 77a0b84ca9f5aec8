package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/analysis"
	"github.com/san-kum/fdjac/internal/config"
	"github.com/san-kum/fdjac/internal/ctxlog"
	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/flat"
	"github.com/san-kum/fdjac/internal/models"
	"github.com/san-kum/fdjac/internal/pseudo"
	"github.com/san-kum/fdjac/internal/storage"
	"github.com/san-kum/fdjac/internal/viz"
)

var (
	dataDir  string
	logLevel string

	form     string
	step     float64
	stepType string
	format   string
	ffdOrder int

	configFile string
	preset     string
	label      string
	save       bool
	themeName  string

	directions []string
	points     int

	surveyForm string
	surveyStep float64

	csvOut  string
	jsonOut string
	initOut string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fdjac",
		Short: "finite-difference Jacobian lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log := ctxlog.New(os.Stderr, logLevel)
			slog.SetDefault(log)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), log))
		},
		RunE: runExplore,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fdjac", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	jacobianCmd := &cobra.Command{
		Use:   "jacobian [model]",
		Short: "finite difference a model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runJacobian,
	}
	addProblemFlags(jacobianCmd)
	jacobianCmd.Flags().BoolVar(&save, "save", false, "save the Jacobian to the data directory")

	directionalCmd := &cobra.Command{
		Use:   "directional [model]",
		Short: "directional derivative J·v",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDirectional,
	}
	addProblemFlags(directionalCmd)
	directionalCmd.Flags().StringArrayVar(&directions, "dir", nil, "direction entry name=v1,v2,... (repeatable)")

	checkCmd := &cobra.Command{
		Use:   "check [model]",
		Short: "cross-check the Jacobian against analytic, J·v and directional results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}
	addProblemFlags(checkCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "step-size convergence sweep",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addProblemFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&points, "points", 27, "number of step sizes")

	surveyCmd := &cobra.Command{
		Use:   "survey [model...]",
		Short: "differentiate several models concurrently",
		RunE:  runSurvey,
	}
	surveyCmd.Flags().StringVar(&surveyForm, "form", "complex_step", "forward, backward, central or complex_step")
	surveyCmd.Flags().Float64Var(&surveyStep, "step", 1e-20, "finite difference step")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved Jacobians",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a saved Jacobian",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "color theme")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a saved Jacobian to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&csvOut, "out", "o", "", "output file (default <run_id>.csv)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a saved Jacobian to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&jsonOut, "out", "o", "", "output file (default: metadata to stdout)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list registered models",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := models.NewRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tDESCRIPTION")
			for _, name := range reg.List() {
				fmt.Fprintf(w, "%s\t%s\n", name, reg.Describe(name))
			}
			return w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [model]",
		Short: "write a problem file for a model or preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	initCmd.Flags().StringVarP(&initOut, "out", "o", "fdjac.yaml", "output file")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "interactive Jacobian explorer",
		RunE:  runExplore,
	}

	rootCmd.AddCommand(jacobianCmd, directionalCmd, checkCmd, sweepCmd, surveyCmd, listCmd, showCmd,
		exportCSVCmd, exportJSONCmd, modelsCmd, presetsCmd, initCmd, exploreCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&form, "form", config.DefaultForm, "forward, backward, central or complex_step")
	cmd.Flags().Float64Var(&step, "step", fd.DefaultStep, "finite difference step")
	cmd.Flags().StringVar(&stepType, "step-type", config.DefaultStepType, "absolute, relative or bounds_scaled")
	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "array or dict")
	cmd.Flags().IntVar(&ffdOrder, "ffd-order", config.DefaultFFDOrder, "1 lets linearized components answer from their tangent")
	cmd.Flags().StringVar(&configFile, "config", "", "problem file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&label, "label", "", "iteration name tagged on evaluations")
	cmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "color theme")
}

// loadProblem resolves the problem from preset, config file and flags, in
// that order of precedence, and runs the model once at its start point.
func loadProblem(cmd *cobra.Command, args []string) (*config.Problem, *models.Problem, error) {
	cfg := config.DefaultProblem()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		c := *p
		cfg = &c
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			loaded.Model = args[0]
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("form") {
		cfg.Options.FDForm = form
	}
	if flags.Changed("step") {
		cfg.Options.FDStep = step
	}
	if flags.Changed("step-type") {
		cfg.Options.FDStepType = stepType
	}
	if flags.Changed("format") {
		cfg.Options.ReturnFormat = format
	}
	if flags.Changed("ffd-order") {
		order := ffdOrder
		cfg.Options.FFDOrder = &order
	}
	if flags.Changed("label") {
		cfg.Label = label
	}

	prob, err := models.NewRegistry().Get(cfg.Model, cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Apply(prob); err != nil {
		return nil, nil, err
	}
	if err := prob.Baseline(cmd.Context()); err != nil {
		return nil, nil, err
	}
	return cfg, prob, nil
}

func assemble(cfg *config.Problem, prob *models.Problem) (*pseudo.PseudoAssembly, fd.Options, error) {
	opts, err := cfg.ToOptions()
	if err != nil {
		return nil, opts, err
	}
	asm, err := prob.Assemble(opts)
	if err != nil {
		return nil, opts, err
	}
	asm.FFDOrder = cfg.FFDOrder()
	if cfg.Label != "" {
		asm.SetIterName(cfg.Label)
	}
	return asm, opts, nil
}

func runJacobian(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, prob, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	asm, opts, err := assemble(cfg, prob)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := asm.CalcDerivatives(ctx, true, false, false); err != nil {
		return err
	}
	elapsed := time.Since(start)

	jac := asm.Jacobian()
	dense := jac.ToDense()
	rows, cols := jac.RowLabels(), jac.ColLabels()

	fmt.Printf("model: %s (%s)\n", prob.Name, asm.Name())
	fmt.Printf("form: %s  step: %g  step type: %s\n", opts.Form, opts.Step, opts.StepType)
	fmt.Printf("evaluations: %d in %v\n\n", asm.Engine().Evaluations(), elapsed)
	fmt.Println(viz.RenderJacobian(dense, rows, cols, viz.GetTheme(themeName)))

	meta := storage.RunMetadata{
		Model:       prob.Name,
		Label:       cfg.Label,
		Form:        opts.Form.String(),
		Step:        opts.Step,
		StepType:    opts.StepType.String(),
		Format:      opts.Format.String(),
		Inputs:      jac.Inputs,
		Outputs:     jac.Outputs,
		Evaluations: asm.Engine().Evaluations(),
	}
	if prob.Analytic != nil {
		exact, err := prob.Analytic(ctx)
		if err != nil {
			return err
		}
		e := analysis.MaxAbsDiff(dense, exact)
		meta.MaxAbsError = &e
		fmt.Printf("\nmax |J - J_exact|: %.3e\n", e)
	}

	if !save {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.Record{Meta: meta, J: dense, RowLabels: rows, ColLabels: cols})
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runDirectional(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, prob, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	asm, opts, err := assemble(cfg, prob)
	if err != nil {
		return err
	}

	dir := cfg.DirectionVector()
	extra, err := parseDirections(directions)
	if err != nil {
		return err
	}
	for k, v := range extra {
		dir[k] = v
	}
	if len(dir) == 0 {
		if dir, err = ones(prob); err != nil {
			return err
		}
	}

	d, err := fd.NewDirectional(asm, prob.Scope, prob.Inputs, prob.Outputs, opts)
	if err != nil {
		return err
	}
	acc := fd.Accumulator{}
	if err := d.Calculate(ctx, prob.Scope, dir, acc, "dir"); err != nil {
		return err
	}

	names := make([]string, 0, len(dir))
	for k := range dir {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Printf("model: %s  form: %s  step: %g\n", prob.Name, opts.Form, opts.Step)
	for _, k := range names {
		fmt.Printf("  v[%s] = %v\n", k, dir[k])
	}
	fmt.Printf("evaluations: %d\n\n", d.Evaluations())
	fmt.Println(viz.RenderAccumulator(acc, viz.GetTheme(themeName)))
	return nil
}

// parseDirections reads name=v1,v2,... entries.
func parseDirections(specs []string) (fd.Direction, error) {
	dir := make(fd.Direction, len(specs))
	for _, s := range specs {
		name, vals, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid direction %q: want name=v1,v2", s)
		}
		var v []float64
		for _, f := range strings.Split(vals, ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid direction %q: %w", s, err)
			}
			v = append(v, x)
		}
		dir[name] = v
	}
	return dir, nil
}

// ones is the all-ones direction over every input slot.
func ones(prob *models.Problem) (fd.Direction, error) {
	dir := make(fd.Direction, len(prob.Inputs))
	for _, key := range prob.InputKeys() {
		n, err := flat.Width(prob.Scope, key)
		if err != nil {
			return nil, err
		}
		v := make([]float64, n)
		for i := range v {
			v[i] = 1
		}
		dir[key] = v
	}
	return dir, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, prob, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	asm, opts, err := assemble(cfg, prob)
	if err != nil {
		return err
	}
	if err := asm.CalcDerivatives(ctx, true, false, false); err != nil {
		return err
	}
	jac := asm.Jacobian()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tVALUE")
	fmt.Fprintf(w, "jacobian\t%dx%d, %d evaluations\n", asm.Engine().OutSize(), asm.Engine().InSize(), asm.Engine().Evaluations())

	if prob.Analytic != nil {
		exact, err := prob.Analytic(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "max |J - J_exact|\t%.3e\n", analysis.MaxAbsDiff(jac.ToDense(), exact))
	}

	dir, err := ones(prob)
	if err != nil {
		return err
	}
	jv := map[string][]float64{}
	if err := pseudo.ApplyJ(prob.Scope, asm, dir, jv); err != nil {
		return err
	}
	d, err := fd.NewDirectional(asm, prob.Scope, prob.Inputs, prob.Outputs, opts)
	if err != nil {
		return err
	}
	acc := fd.Accumulator{}
	if err := d.Calculate(ctx, prob.Scope, dir, acc, "check"); err != nil {
		return err
	}
	worst := 0.0
	for name, v := range jv {
		got, ok := acc[name]
		if !ok {
			continue
		}
		for i, x := range got.Reals() {
			worst = math.Max(worst, math.Abs(x-v[i]))
		}
	}
	fmt.Fprintf(w, "max |J·1 - directional|\t%.3e\n", worst)

	for _, c := range prob.Components {
		flow, ok := c.(*models.FlowMap)
		if !ok {
			continue
		}
		phi, ok := jac.Block(flow.Out, flow.In)
		if !ok {
			continue
		}
		spectrum, err := analysis.LyapunovSpectrum(phi, flow.Duration)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "ftle %s\t%s\n", flow.Name(), formatFloats(spectrum))
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, prob, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	asm, _, err := assemble(cfg, prob)
	if err != nil {
		return err
	}
	asm.FFDOrder = 0

	var ref *mat.Dense
	if prob.Analytic != nil {
		if ref, err = prob.Analytic(ctx); err != nil {
			return err
		}
	}

	forms := []fd.Form{fd.Forward, fd.Central, fd.ComplexStep}
	curves, err := analysis.Convergence(ctx, asm, prob.Scope, prob.Inputs, prob.Outputs, ref, forms, analysis.StepRange(1e-14, 1e-1, points))
	if err != nil {
		return err
	}

	fmt.Printf("model: %s\n\n", prob.Name)
	fmt.Println(viz.PlotConvergence(curves, 70, 12))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FORM\tBEST STEP\tERROR")
	for _, c := range curves {
		fmt.Fprintf(w, "%s\t%.1e\t%.3e\n", c.Form, c.Best.Step, c.Best.Error)
	}
	return w.Flush()
}

func runSurvey(cmd *cobra.Command, args []string) error {
	f, err := fd.ParseForm(surveyForm)
	if err != nil {
		return err
	}
	opts := fd.DefaultOptions()
	opts.Form, opts.Step = f, surveyStep

	reg := models.NewRegistry()
	names := args
	if len(names) == 0 {
		names = reg.List()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSIZE\tEVALS\tERROR\tTIME")
	failed := 0
	for _, r := range analysis.Survey(cmd.Context(), reg, names, opts) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\t%v\t-\n", r.Model, r.Err)
			continue
		}
		errCol := "-"
		if !math.IsNaN(r.MaxAbsError) {
			errCol = fmt.Sprintf("%.2e", r.MaxAbsError)
		}
		fmt.Fprintf(w, "%s\t%dx%d\t%d\t%s\t%v\n", r.Model, r.Rows, r.Cols, r.Evaluations, errCol, r.Elapsed.Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(names))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tFORM\tSTEP\tSIZE\tEVALS\tERROR")
	for _, run := range runs {
		errCol := "-"
		if run.MaxAbsError != nil {
			errCol = fmt.Sprintf("%.2e", *run.MaxAbsError)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%dx%d\t%d\t%s\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Form,
			run.Step,
			run.Rows, run.Cols,
			run.Evaluations,
			errCol,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	rec, err := st.LoadJacobian(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", rec.Meta.ID)
	fmt.Printf("model: %s\n", rec.Meta.Model)
	fmt.Printf("form: %s  step: %g  step type: %s\n\n", rec.Meta.Form, rec.Meta.Step, rec.Meta.StepType)
	fmt.Println(viz.RenderJacobian(rec.J, rec.RowLabels, rec.ColLabels, viz.GetTheme(themeName)))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	rec, err := storage.New(dataDir).LoadJacobian(args[0])
	if err != nil {
		return err
	}
	path := csvOut
	if path == "" {
		path = args[0] + ".csv"
	}
	if err := storage.ExportCSV(path, rec); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	rec, err := storage.New(dataDir).LoadJacobian(args[0])
	if err != nil {
		return err
	}
	if jsonOut == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec.Meta)
	}
	if err := storage.ExportJSON(jsonOut, rec); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", jsonOut)
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultProblem()
	if len(args) > 0 {
		cfg.Model = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}
	if _, err := models.NewRegistry().Get(cfg.Model, cfg.Params); err != nil {
		return err
	}
	if err := config.Save(initOut, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", initOut)
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	p := tea.NewProgram(viz.NewExplorer(cmd.Context(), models.NewRegistry()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func formatFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
