package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/am"
	"github.com/teranos/GLAO/budget"
	"github.com/teranos/GLAO/display"
	"github.com/teranos/GLAO/errors"
	"github.com/teranos/GLAO/logger"
	"github.com/teranos/GLAO/modal"
	"github.com/teranos/GLAO/sym"
)

var budgetOutput string

// BudgetCmd represents the budget command
var BudgetCmd = &cobra.Command{
	Use:   "budget",
	Short: sym.Budget + " Combine contributors into an error-budget total",
	Long: sym.Budget + ` budget — Wavefront error budget

Runs every configured contributor's study, then combines the per-series
RMS values into a single total. Independent contributors add in
quadrature; contributors sharing a correlation tag combine with their
configured correlation coefficient.

Examples:
  glao budget                          # Render the budget table
  glao budget --output report.json     # Also write the structured report`,
	RunE: runBudget,
}

func init() {
	BudgetCmd.Flags().StringVarP(&budgetOutput, "output", "o", "", "Write the JSON report to this path")
	BudgetCmd.Flags().BoolP("json", "j", false, "Print the report as JSON instead of a table")
}

func runBudget(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Budget.Contributors) == 0 {
		return errors.New("no contributors configured under [budget]")
	}

	// Build the basis once; residual studies share it read-only.
	var basis *modal.Basis
	for _, contrib := range cfg.Budget.Contributors {
		if contrib.Study == am.StudyResidual {
			basis, err = buildBasis(cfg)
			if err != nil {
				return err
			}
			break
		}
	}

	ctx, stop := studyContext(cmd)
	defer stop()

	contributors := make([]budget.Contributor, 0, len(cfg.Budget.Contributors))
	for _, contrib := range cfg.Budget.Contributors {
		logger.Infow("running contributor study", "name", contrib.Name, "study", contrib.Study)
		res, err := runStudy(ctx, cfg, contrib, basis, 0)
		if err != nil {
			return err
		}
		contributors = append(contributors, budget.Contributor{
			Name:   contrib.Name,
			Series: res.Series,
			Tag:    contrib.Tag,
			Rho:    contrib.Rho,
		})
	}

	report, err := budget.New(cfg.Budget.Unit, contributors)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		if err := display.OutputJSON(report); err != nil {
			return err
		}
	} else {
		renderBudget(report)
	}

	if budgetOutput != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding report")
		}
		if err := os.WriteFile(budgetOutput, data, 0o644); err != nil {
			return errors.Wrapf(err, "writing report to %s", budgetOutput)
		}
		pterm.Success.Printf("Report written to %s\n", budgetOutput)
	}
	return nil
}

func renderBudget(report *budget.Report) {
	pterm.DefaultSection.Println("Wavefront error budget")

	unit := report.Unit
	data := pterm.TableData{{"contributor", fmt.Sprintf("rms [%s]", unit), "frames", "tag", "rho"}}
	for _, c := range report.Contributors {
		rho := ""
		if c.Tag != "" {
			rho = fmt.Sprintf("%.2f", c.Rho)
		}
		data = append(data, []string{
			c.Name,
			fmt.Sprintf("%.4g", c.Series.RMS),
			fmt.Sprintf("%d", c.Series.Count),
			c.Tag,
			rho,
		})
	}
	data = append(data, []string{"total", fmt.Sprintf("%.4g", report.TotalRMS), "", "", ""})

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		logger.Errorw("table render failed", "error", err)
	}
}
