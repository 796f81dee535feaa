package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/puara/puara/internal/errdefs"
)

// Pair is one labelled line of a key/value block.
type Pair struct {
	Key   string
	Value string
}

// Printer writes styled output for CLI commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer on w, or os.Stdout when w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the rendering width.
func (p *Printer) Width() int { return p.width }

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintBanner prints the boot banner.
func (p *Printer) PrintBanner(version string) {
	p.Println(RenderBanner(version, p.width))
}

// PrintPairs prints a titled key/value block in the given order.
func (p *Printer) PrintPairs(title string, pairs []Pair) {
	p.Println(RenderPairs(title, pairs, p.width))
}

// PrintSuccess prints a one-line success message.
func (p *Printer) PrintSuccess(msg string) {
	p.Println(GoodStyle.Render(SuccessMarker+" ") + ValueStyle.Render(msg))
}

// PrintError prints err with its troubleshooting hint, if any.
func (p *Printer) PrintError(title string, err error) {
	p.Println(RenderError(title, err, p.width))
}

// RenderBanner renders the module banner shown at startup.
func RenderBanner(version string, width int) string {
	lines := []string{
		TitleStyle.Render("Puara Module Manager"),
		SubtitleStyle.Render("Metalab - Société des Arts Technologiques (SAT)"),
		SubtitleStyle.Render("Input Devices and Music Interaction Laboratory (IDMIL)"),
		SubtitleStyle.Render("Firmware version: " + version),
	}
	return BoxStyle(width, PrimaryColor).Render(strings.Join(lines, "\n"))
}

// RenderPairs renders a titled key/value block.
func RenderPairs(title string, pairs []Pair, width int) string {
	lines := make([]string, 0, len(pairs)+2)
	if title != "" {
		lines = append(lines, TitleStyle.Render(title), RenderDivider(width-6))
	}
	for _, pair := range pairs {
		lines = append(lines, KeyStyle.Render(pair.Key+":")+" "+ValueStyle.Render(pair.Value))
	}
	return BoxStyle(width, MutedColor).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderError renders a failure box for err.
func RenderError(title string, err error, width int) string {
	lines := []string{BadStyle.Render(FailureMarker + "  " + title)}
	if err != nil {
		errStyle := lipgloss.NewStyle().Foreground(ErrorColor)
		summary, cause := splitCause(err)
		lines = append(lines, "", errStyle.Render("Error: "+summary))
		if cause != nil {
			lines = append(lines, errStyle.Render("Cause: "+cause.Error()))
		}
		if hint := errdefs.TroubleshootingHint(err); hint != "" {
			lines = append(lines, "", HintStyle.Render(hint))
		}
	}
	return BoxStyle(width, ErrorColor).Render(strings.Join(lines, "\n"))
}

// splitCause separates a module error from its underlying cause so each gets
// its own line.
func splitCause(err error) (string, error) {
	var me *errdefs.ModuleError
	if !errors.As(err, &me) || me != err || me.Err == nil {
		return err.Error(), nil
	}
	top := *me
	top.Err = nil
	return top.Error(), me.Err
}
