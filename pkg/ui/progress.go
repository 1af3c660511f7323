package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

const barWidth = 30

// ProgressPrinter reports download progress on a terminal line that is rewritten in
// place. It satisfies mitene.Progress.
type ProgressPrinter struct {
	out     io.Writer
	bar     progress.Model
	showBar bool
}

// NewProgressPrinter creates a ProgressPrinter. The bar is only drawn when showBar is
// set, which callers do for interactive terminals.
func NewProgressPrinter(out io.Writer, showBar bool) *ProgressPrinter {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = barWidth

	return &ProgressPrinter{out: out, bar: bar, showBar: showBar}
}

func (p *ProgressPrinter) Start(outputDir string, total int) {
	fmt.Fprintf(p.out, "%s %s...\n", labelStyle.Render("Saving media to"), valueStyle.Render(outputDir))
}

func (p *ProgressPrinter) Update(processed, total int) {
	line := fmt.Sprintf("Processed %d of %d...", processed, total)
	if p.showBar && total > 0 {
		line = p.bar.ViewAs(float64(processed)/float64(total)) + " " + line
	}
	fmt.Fprintf(p.out, "\r%s", line)
}

func (p *ProgressPrinter) Finish(downloaded int) {
	fmt.Fprintf(p.out, "\n%s\n", successStyle.Render(fmt.Sprintf("Finished getting media. %d new files.", downloaded)))
}

// CompressionPrinter reports video compression progress. It satisfies video.Progress.
type CompressionPrinter struct {
	out     io.Writer
	bar     progress.Model
	showBar bool
}

// NewCompressionPrinter creates a CompressionPrinter
func NewCompressionPrinter(out io.Writer, showBar bool) *CompressionPrinter {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = barWidth

	return &CompressionPrinter{out: out, bar: bar, showBar: showBar}
}

func (p *CompressionPrinter) Start(total int) {
	if total == 0 {
		fmt.Fprintln(p.out, "No files to compress.")
		return
	}
	fmt.Fprintln(p.out, labelStyle.Render("Compressing videos..."))
}

func (p *CompressionPrinter) Update(done, total int) {
	line := fmt.Sprintf("Compressed %d of %d...", done, total)
	if p.showBar && total > 0 {
		line = p.bar.ViewAs(float64(done)/float64(total)) + " " + line
	}
	fmt.Fprintf(p.out, "\r%s", line)
}

func (p *CompressionPrinter) Finish(compressed int) {
	fmt.Fprintf(p.out, "\n%s\n", successStyle.Render(fmt.Sprintf("Finished compressing. %d new files.", compressed)))
}
