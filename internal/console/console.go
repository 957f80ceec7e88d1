// Package console prints pgmigrator's user-facing progress lines.
//
// Every line is prefixed with the time of day, "[3:04PM] message", and
// colored by kind when the output is a terminal.
package console

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Printer writes progress lines to Out and usage text to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer

	// Now is stubbed in tests.
	Now func() time.Time

	success *color.Color
	failure *color.Color
	notice  *color.Color
}

// New returns a Printer writing to out and errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{
		Out:     out,
		Err:     errOut,
		Now:     time.Now,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		notice:  color.New(color.FgYellow),
	}
}

func (p *Printer) stamp() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return "[" + now().Format(time.Kitchen) + "] "
}

// Infof prints a plain progress line.
func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintf(p.Out, p.stamp()+format+"\n", args...)
}

// Successf prints a green progress line.
func (p *Printer) Successf(format string, args ...any) {
	p.colored(p.success, format, args...)
}

// Noticef prints a yellow progress line.
func (p *Printer) Noticef(format string, args ...any) {
	p.colored(p.notice, format, args...)
}

// Failuref prints a red line. Failures go to Out so they interleave with
// the progress lines that led to them.
func (p *Printer) Failuref(format string, args ...any) {
	p.colored(p.failure, format, args...)
}

func (p *Printer) colored(c *color.Color, format string, args ...any) {
	if c == nil {
		p.Infof(format, args...)
		return
	}
	c.Fprintf(p.Out, p.stamp()+format+"\n", args...)
}

// Row is one line of a migration table.
type Row struct {
	Name   string
	Status string
}

// Table renders rows under a Migration/Status header. Nothing is printed
// for an empty slice.
func (p *Printer) Table(rows []Row) {
	if len(rows) == 0 {
		return
	}
	table := tablewriter.NewWriter(p.Out)
	table.SetHeader([]string{"Migration", "Status"})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{r.Name, r.Status})
	}
	table.Render()
}
