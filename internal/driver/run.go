package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/kgc/internal/ir"
)

// RunReport summarizes a Run.
type RunReport struct {
	Steps     int          // Transactions attempted
	Committed int          // Transactions committed
	Rejected  int          // Transactions rolled back
	Receipts  []ir.Receipt // Every receipt, in seq order
}

// Run steps the workflow until it quiesces: a step in which no transaction
// changed the graph. A fatal rejection (unknown pattern, invalid parameter,
// batch size) stops the run and is returned with the report so far.
func (d *Driver) Run(ctx context.Context, data ir.IRObject) (RunReport, error) {
	var report RunReport
	for {
		receipts, rejections, err := d.step(ctx, data)
		if err != nil {
			return report, fmt.Errorf("run: %w", err)
		}

		progressed := false
		for _, r := range receipts {
			report.Steps++
			report.Receipts = append(report.Receipts, r)
			if !r.Committed {
				report.Rejected++
				continue
			}
			report.Committed++
			if !r.Delta.IsEmpty() {
				progressed = true
			}
		}

		if fatal := firstFatal(rejections); fatal != nil {
			return report, fatal
		}
		if !progressed {
			return report, nil
		}
		if report.Steps >= d.maxSteps {
			return report, &StepsExceededError{Steps: report.Steps, Limit: d.maxSteps}
		}
	}
}

// firstFatal returns the first rejection caused by a configuration problem.
func firstFatal(rejections []error) error {
	for _, err := range rejections {
		var ke *ir.KernelError
		if errors.As(err, &ke) && ke.Fatal() {
			return err
		}
	}
	return nil
}
