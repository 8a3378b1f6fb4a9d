// Package output renders scan reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"netmap/scanner"
)

const (
	StartBanner = "--- MULTI-TARGET SCAN START ---"
	EndBanner   = "--- SCAN COMPLETE ---"
)

// HostHeader is the first line of a host block.
func HostHeader(address string) string {
	return ">> Scanning " + address
}

// OpenLine reports one accepted port.
func OpenLine(p uint16) string {
	return fmt.Sprintf("[+] PORT %d OPEN", p)
}

// Lines returns the report as lines: start banner, one block per host,
// a blank separator and the end banner.
func Lines(rep *scanner.Report) []string {
	lines := []string{StartBanner}
	for _, h := range rep.Hosts {
		lines = append(lines, HostHeader(h.Address))
		for _, p := range h.Open {
			lines = append(lines, OpenLine(p))
		}
	}
	return append(lines, "", EndBanner)
}

// Text is the plain-text report body. It has no trailing newline.
func Text(rep *scanner.Report) string {
	return strings.Join(Lines(rep), "\n")
}

// WriteText writes Text(rep) to w.
func WriteText(w io.Writer, rep *scanner.Report) error {
	_, err := io.WriteString(w, Text(rep))
	return err
}

var (
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	hostStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// WriteStyled writes the report with terminal colors, followed by a newline.
// The text content is identical to Text.
func WriteStyled(w io.Writer, rep *scanner.Report) error {
	var b strings.Builder
	b.WriteString(bannerStyle.Render(StartBanner) + "\n")
	for _, h := range rep.Hosts {
		b.WriteString(hostStyle.Render(HostHeader(h.Address)) + "\n")
		for _, p := range h.Open {
			b.WriteString(openStyle.Render(OpenLine(p)) + "\n")
		}
	}
	b.WriteString("\n" + bannerStyle.Render(EndBanner) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
