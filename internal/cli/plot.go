package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/roach88/pvregress/internal/archive"
	"github.com/roach88/pvregress/internal/curve"
	"github.com/roach88/pvregress/internal/harness"
	"github.com/roach88/pvregress/internal/model"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Out    string
	Width  float64 // inches
	Height float64 // inches
}

// PlotReport is the JSON payload of the plot command.
type PlotReport struct {
	Scenario        string  `json:"scenario"`
	Out             string  `json:"out"`
	ModelPoints     int     `json:"model_points"`
	ModelPmax       float64 `json:"model_pmax"`
	ReferencePoints int     `json:"reference_points,omitempty"`
	ReferencePmax   float64 `json:"reference_pmax,omitempty"`
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plot <scenario-file>",
		Short: "Plot the model IV curve against its reference scans",
		Long: `Render the computed IV curve of a scenario's device, overlaid with the
reference scans when the scenario configures them.

When the scenario has no device of its own but names a reference baseline,
the newest artifact recorded by that scenario is plotted; artifacts are
looked up in the snapshot directory of the config given with --config.
The image format follows the output extension (png, svg, pdf, ...).

Examples:
  pvregress plot scenarios/a01_cell.yaml --out a01.png
  pvregress plot scenarios/b01_reference.yaml --config pvregress.yaml --out b01.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output image path (required)")
	cmd.Flags().Float64Var(&opts.Width, "width", 8, "image width in inches")
	cmd.Flags().Float64Var(&opts.Height, "height", 5, "image height in inches")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runPlot(opts *PlotOptions, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sc, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	device, err := plotDevice(opts, sc)
	if err != nil {
		return err
	}
	computed, err := device.Curve()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute curve", err)
	}

	report := PlotReport{
		Scenario:    sc.Name,
		Out:         opts.Out,
		ModelPoints: computed.Len(),
		ModelPmax:   curve.Pmax(computed),
	}

	var reference *curve.Curve
	if sc.Reference != nil {
		ref, err := curve.LoadReference(sc.Reference.Dir, sc.Reference.Device)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load reference scans", err)
		}
		reference = &ref
		report.ReferencePoints = ref.Len()
		report.ReferencePmax = curve.Pmax(ref)
	}

	formatter.VerboseLog("plotting %s: %d model samples", sc.Name, computed.Len())
	if err := renderIV(opts.Out, sc.Name, computed, reference, opts.Width, opts.Height); err != nil {
		return WrapExitError(ExitCommandError, "failed to render plot", err)
	}

	if formatter.IsJSON() {
		return formatter.Report(report, nil)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s plotted to %s (Pmax %.6g W)\n", sc.Name, opts.Out, report.ModelPmax)
	return nil
}

// plotDevice returns the device a scenario plots: its own device tree, or
// the newest artifact of its reference baseline. Scenario validation
// guarantees one of the two exists.
func plotDevice(opts *PlotOptions, sc *harness.Scenario) (model.Component, error) {
	solver := model.DefaultSolver().WithOverrides(sc.Solver)

	if sc.Device != nil {
		device, err := model.Build(*sc.Device, solver)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to build device", err)
		}
		return device, nil
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	device, _, _, err := harness.LatestArtifact(archive.New(cfg.SnapshotPath()), sc.Reference.Baseline)
	if err != nil {
		var nf *archive.NotFoundError
		if errors.As(err, &nf) {
			return nil, WrapExitError(ExitCommandError, "no recorded baseline artifact", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to load baseline artifact", err)
	}
	device.SetSolver(device.Solver().WithOverrides(sc.Solver))
	return device, nil
}

// renderIV draws the computed curve as a line and the reference samples as
// points, and saves the image to out.
func renderIV(out, title string, computed curve.Curve, reference *curve.Curve, width, height float64) error {
	if !strings.Contains(filepath.Base(out), ".") {
		return fmt.Errorf("output %q has no image extension", out)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Voltage (V)"
	p.Y.Label.Text = "Current (A)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(curveXYs(computed))
	if err != nil {
		return fmt.Errorf("model curve: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(0)
	p.Add(line)
	p.Legend.Add("model", line)

	if reference != nil {
		points, err := plotter.NewScatter(curveXYs(*reference))
		if err != nil {
			return fmt.Errorf("reference curve: %w", err)
		}
		points.GlyphStyle.Color = plotutil.Color(1)
		points.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(points)
		p.Legend.Add("reference", points)
	}

	return p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, out)
}

func curveXYs(c curve.Curve) plotter.XYs {
	xys := make(plotter.XYs, c.Len())
	for k := range c.V {
		xys[k].X = c.V[k]
		xys[k].Y = c.I[k]
	}
	return xys
}
