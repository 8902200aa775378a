// Command tlg tabulates subgroup analyses from subject-level trial data:
// survival and response forest tables, Cox regression summaries and
// biomarker effect tables, rendered as plain text.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"clintab/adapters/excel"
	"clintab/adapters/postgres"
	"clintab/adapters/render"
	"clintab/app"
	"clintab/domain/frame"
	"clintab/internal"
	"clintab/internal/assemble"
	"clintab/internal/estimators"
	"clintab/internal/tabulate"
	"clintab/internal/testkit"
	"clintab/ports"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "tlg",
		Short: "Tabulate subgroup analyses from subject-level trial data",
	}

	rootCmd.AddCommand(
		newSurvivalCmd(),
		newResponseCmd(),
		newCoxRegCmd(),
		newBiomarkerCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sourceFlags select where the dataset comes from
type sourceFlags struct {
	input string
	study string
	demo  bool
	seed  int64
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.input, "input", "", "dataset file (.xlsx or .csv)")
	cmd.Flags().StringVar(&s.study, "study", "", "study cohort to load from DATABASE_URL")
	cmd.Flags().BoolVar(&s.demo, "demo", false, "use a synthetic demo dataset")
	cmd.Flags().Int64Var(&s.seed, "seed", 42, "random seed for the demo dataset")
}

func (s *sourceFlags) load(cmd *cobra.Command) (*frame.Frame, error) {
	switch {
	case s.demo:
		return testkit.NewTrialFrame(testkit.TrialConfig{Seed: s.seed}), nil
	case s.input != "":
		return excel.NewDataReader(s.input).ReadFrame()
	case s.study != "":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		return postgres.NewSubjectRepository(db).LoadCohort(cmd.Context(), s.study)
	}
	return nil, fmt.Errorf("one of --input, --study or --demo is required")
}

// roleFlags map dataset columns onto analysis roles
type roleFlags struct {
	time       string
	event      string
	arm        string
	response   string
	covariates []string
	subgroups  []string
	strata     []string
	biomarkers []string
}

func (r *roleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.time, "time", "AVAL", "survival time column")
	cmd.Flags().StringVar(&r.event, "event", "EVENT", "event flag column")
	cmd.Flags().StringVar(&r.arm, "arm", "ARM", "treatment arm column")
	cmd.Flags().StringSliceVar(&r.subgroups, "subgroups", nil, "subgroup factor columns")
	cmd.Flags().StringSliceVar(&r.strata, "strata", nil, "stratification columns")
}

func (r *roleFlags) roles() frame.VariableRoles {
	return frame.VariableRoles{
		Time:       r.time,
		Event:      r.event,
		Arm:        r.arm,
		Response:   r.response,
		Covariates: r.covariates,
		Subgroups:  r.subgroups,
		Strata:     r.strata,
		Biomarkers: r.biomarkers,
	}
}

func newService() *app.Service {
	return app.NewService(func() ports.TableBuilder { return render.NewBuilder() }, internal.DefaultLogger)
}

func runBuild(cmd *cobra.Command, data *frame.Frame, req app.Request) error {
	res, err := newService().Build(cmd.Context(), data, req)
	if err != nil {
		return err
	}
	return res.Table.Render(cmd.OutOrStdout())
}

func newSurvivalCmd() *cobra.Command {
	var src sourceFlags
	var roles roleFlags
	var stats []string
	var confLevel float64
	var ties, pvalue, timeUnit string

	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Survival subgroup table with hazard ratios",
		Long: `Tabulate median survival and treatment hazard ratios over the full
population and each subgroup, laid out for a forest plot.

Example: tlg survival --demo --subgroups SEX,BMRKR2 --time-unit months`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := src.load(cmd)
			if err != nil {
				return err
			}
			if err := runBuild(cmd, data, app.Request{
				Name:  "survival",
				Kind:  app.KindSurvival,
				Roles: roles.roles(),
				Stats: stats,
				Survival: assemble.SurvivalOptions{
					ConfLevel: confLevel,
					Ties:      estimators.TiesMethod(ties),
					PValue:    assemble.SurvivalPValue(pvalue),
					TimeUnit:  timeUnit,
				},
			}); err != nil {
				return err
			}
			followUp, err := assemble.MedianFollowUp(data, roles.time)
			if err != nil {
				return err
			}
			footer := fmt.Sprintf("Median follow-up: %.1f", followUp)
			if timeUnit != "" {
				footer += " " + timeUnit
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n"+footer)
			return nil
		},
	}

	src.register(cmd)
	roles.register(cmd)
	cmd.Flags().StringSliceVar(&stats, "stats", nil,
		"statistics to tabulate (default "+strings.Join(tabulate.DefaultSurvivalStats, ",")+")")
	cmd.Flags().Float64Var(&confLevel, "conf-level", 0.95, "confidence level")
	cmd.Flags().StringVar(&ties, "ties", "efron", "Cox ties method (efron, breslow, exact)")
	cmd.Flags().StringVar(&pvalue, "pvalue", "wald", "p-value method (wald, logrank)")
	cmd.Flags().StringVar(&timeUnit, "time-unit", "", "display unit for survival times")
	return cmd
}

func newResponseCmd() *cobra.Command {
	var src sourceFlags
	var roles roleFlags
	var stats []string
	var confLevel float64
	var method, denominator string

	cmd := &cobra.Command{
		Use:   "response",
		Short: "Binary response subgroup table with odds ratios",
		Long: `Tabulate response proportions and odds ratios over the full population
and each subgroup, laid out for a forest plot.

Example: tlg response --demo --subgroups SEX --method chisq`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := src.load(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd, data, app.Request{
				Name:  "response",
				Kind:  app.KindResponse,
				Roles: roles.roles(),
				Stats: stats,
				Response: assemble.ResponseOptions{
					ConfLevel:   confLevel,
					Method:      estimators.TestMethod(method),
					Denominator: estimators.Denominator(denominator),
				},
			})
		},
	}

	src.register(cmd)
	roles.register(cmd)
	cmd.Flags().StringVar(&roles.response, "response", "RSP", "response flag column")
	cmd.Flags().StringSliceVar(&stats, "stats", nil,
		"statistics to tabulate (default "+strings.Join(tabulate.DefaultResponseStats, ",")+")")
	cmd.Flags().Float64Var(&confLevel, "conf-level", 0.95, "confidence level")
	cmd.Flags().StringVar(&method, "method", "", "difference test (chisq, fisher, cmh)")
	cmd.Flags().StringVar(&denominator, "denominator", "n", "proportion denominator (n, N, omit)")
	return cmd
}

func newCoxRegCmd() *cobra.Command {
	var src sourceFlags
	var roles roleFlags
	var stats []string
	var confLevel float64
	var ties string
	var interaction, multivariable bool

	cmd := &cobra.Command{
		Use:   "coxreg",
		Short: "Covariate-adjusted Cox regression table",
		Long: `Tabulate treatment hazard ratios adjusted per covariate (univariable
mode) or jointly (multivariable mode), optionally with treatment-by-covariate
interaction effects.

Example: tlg coxreg --demo --covariates SEX,BMRKR1 --interaction`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := src.load(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd, data, app.Request{
				Name:  "coxreg",
				Kind:  app.KindCoxRegression,
				Roles: roles.roles(),
				Stats: stats,
				CoxReg: assemble.CoxRegOptions{
					ConfLevel:     confLevel,
					Ties:          estimators.TiesMethod(ties),
					Interaction:   interaction,
					Multivariable: multivariable,
				},
			})
		},
	}

	src.register(cmd)
	roles.register(cmd)
	cmd.Flags().StringSliceVar(&roles.covariates, "covariates", nil, "model covariate columns")
	cmd.Flags().StringSliceVar(&stats, "stats", nil,
		"statistics to tabulate (default "+strings.Join(tabulate.DefaultCoxRegStats, ",")+")")
	cmd.Flags().Float64Var(&confLevel, "conf-level", 0.95, "confidence level")
	cmd.Flags().StringVar(&ties, "ties", "efron", "Cox ties method (efron, breslow, exact)")
	cmd.Flags().BoolVar(&interaction, "interaction", false, "report treatment-by-covariate interactions")
	cmd.Flags().BoolVar(&multivariable, "multivariable", false, "fit one joint model over all covariates")
	return cmd
}

func newBiomarkerCmd() *cobra.Command {
	var src sourceFlags
	var roles roleFlags
	var stats []string
	var confLevel float64
	var ties, timeUnit string

	cmd := &cobra.Command{
		Use:   "biomarker",
		Short: "Continuous biomarker effect table",
		Long: `Tabulate per-unit hazard ratios of continuous biomarkers over the full
population and each subgroup.

Example: tlg biomarker --demo --biomarkers BMRKR1 --subgroups SEX`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := src.load(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd, data, app.Request{
				Name:   "biomarker",
				Kind:   app.KindBiomarker,
				Roles:  roles.roles(),
				Stats:  stats,
				Format: tabulate.Format{TimeUnit: timeUnit},
				Biomarker: assemble.BiomarkerOptions{
					ConfLevel: confLevel,
					Ties:      estimators.TiesMethod(ties),
				},
			})
		},
	}

	src.register(cmd)
	roles.register(cmd)
	cmd.Flags().StringSliceVar(&roles.biomarkers, "biomarkers", nil, "continuous biomarker columns")
	cmd.Flags().StringSliceVar(&stats, "stats", nil,
		"statistics to tabulate (default "+strings.Join(tabulate.DefaultBiomarkerStats, ",")+")")
	cmd.Flags().Float64Var(&confLevel, "conf-level", 0.95, "confidence level")
	cmd.Flags().StringVar(&ties, "ties", "efron", "Cox ties method (efron, breslow, exact)")
	cmd.Flags().StringVar(&timeUnit, "time-unit", "", "display unit for survival times")
	return cmd
}
