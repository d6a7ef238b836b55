package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

// DateLayout is the report title date.
const DateLayout = "1/2/2006"

// Raw HTML typed into a client field is escaped, never passed through.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func depositsText(v float64) string {
	if v == 0 {
		return "$0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderText produces the plain-text report agents paste into chat.
func RenderText(snap model.ReportSnapshot, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent Report - %s\n\n", at.Format(DateLayout))

	b.WriteString("AGENT INFORMATION:\n")
	fmt.Fprintf(&b, "Name: %s\n", orDefault(snap.AgentName, "Not specified"))
	fmt.Fprintf(&b, "Added Client Today: %d\n", snap.AddedToday)
	fmt.Fprintf(&b, "Monthly Client Added: %d\n", snap.MonthlyAdded)
	fmt.Fprintf(&b, "Open Shops: %d\n", snap.OpenShops)
	fmt.Fprintf(&b, "Deposits: %s\n\n", depositsText(snap.Deposits))

	b.WriteString("CLIENT INFORMATION:\n\n")
	for i, c := range snap.Clients {
		fmt.Fprintf(&b, "CLIENT %d:\n", i+1)
		fmt.Fprintf(&b, "Shop ID: %s\n", orDefault(c.ShopID, "Not specified"))
		fmt.Fprintf(&b, "Client Details: %s\n", orDefault(c.ClientDetails, "None"))
		fmt.Fprintf(&b, "Assets: %s\n", orDefault(c.Assets, "None"))
		fmt.Fprintf(&b, "Conversation Summary: %s\n", orDefault(c.ConversationSummary, "None"))
		fmt.Fprintf(&b, "Plan for Tomorrow: %s\n\n", orDefault(c.PlanForTomorrow, "None"))
	}
	return b.String()
}

// markdownEscaper neutralises the markdown control characters that agents
// commonly type into free text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "#", `\#`, "`", "\\`", "[", `\[`, "]", `\]`,
)

// RenderMarkdown produces the Markdown rendition used for e-mail delivery.
func RenderMarkdown(snap model.ReportSnapshot, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Agent Report - %s\n\n", at.Format(DateLayout))
	b.WriteString("## Agent information\n\n")
	fmt.Fprintf(&b, "- **Name:** %s\n", markdownEscaper.Replace(orDefault(snap.AgentName, "Not specified")))
	fmt.Fprintf(&b, "- **Added Client Today:** %d\n", snap.AddedToday)
	fmt.Fprintf(&b, "- **Monthly Client Added:** %d\n", snap.MonthlyAdded)
	fmt.Fprintf(&b, "- **Open Shops:** %d\n", snap.OpenShops)
	fmt.Fprintf(&b, "- **Deposits:** %s\n\n", markdownEscaper.Replace(depositsText(snap.Deposits)))

	b.WriteString("## Client information\n")
	for i, c := range snap.Clients {
		fmt.Fprintf(&b, "\n### Client %d\n\n", i+1)
		fmt.Fprintf(&b, "- **Shop ID:** %s\n", markdownEscaper.Replace(orDefault(c.ShopID, "Not specified")))
		fmt.Fprintf(&b, "- **Client Details:** %s\n", markdownEscaper.Replace(orDefault(c.ClientDetails, "None")))
		fmt.Fprintf(&b, "- **Assets:** %s\n", markdownEscaper.Replace(orDefault(c.Assets, "None")))
		fmt.Fprintf(&b, "- **Conversation Summary:** %s\n", markdownEscaper.Replace(orDefault(c.ConversationSummary, "None")))
		fmt.Fprintf(&b, "- **Plan for Tomorrow:** %s\n", markdownEscaper.Replace(orDefault(c.PlanForTomorrow, "None")))
	}
	return b.String()
}

// RenderHTML converts the Markdown rendition to HTML.
func RenderHTML(snap model.ReportSnapshot, at time.Time) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(RenderMarkdown(snap, at)), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}
