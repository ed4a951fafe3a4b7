package publisher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"feedback_agent/feedback"
)

var converter = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders the final draft as a document laid out for format.
// Bullet lists every section, narrative writes prose paragraphs, hybrid keeps
// the summary as prose and the rest as lists.
func Markdown(res feedback.RunResult, format feedback.Format) string {
	d := res.Draft
	var b strings.Builder

	fmt.Fprintf(&b, "# Personal development feedback: %s\n\n", d.Topic)
	fmt.Fprintf(&b, "_Status: %s, overall score %d/100_\n\n", res.Status, res.Review.OverallScore)

	b.WriteString("## Summary\n\n")
	if format == feedback.FormatBullet {
		fmt.Fprintf(&b, "- %s\n\n", d.Summary)
	} else {
		fmt.Fprintf(&b, "%s\n\n", d.Summary)
	}

	writeSection(&b, "Strengths", d.Strengths, format)
	writeSection(&b, "Growth areas", d.GrowthAreas, format)

	if len(d.ActionPlan) > 0 {
		b.WriteString("## Action plan\n\n")
		for i, item := range d.ActionPlan {
			if format == feedback.FormatNarrative {
				fmt.Fprintf(&b, "%d. %s %s Aim to do this %s.", i+1, item.Action, sentence(item.Rationale), item.TimeHorizon)
				if item.SuccessMetric != "" {
					fmt.Fprintf(&b, " You will know it worked when: %s.", strings.TrimSuffix(item.SuccessMetric, "."))
				}
				b.WriteString("\n")
				continue
			}
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, item.Action)
			if item.Rationale != "" {
				fmt.Fprintf(&b, "   - Why: %s\n", item.Rationale)
			}
			if item.TimeHorizon != "" {
				fmt.Fprintf(&b, "   - When: %s\n", item.TimeHorizon)
			}
			if item.SuccessMetric != "" {
				fmt.Fprintf(&b, "   - Success metric: %s\n", item.SuccessMetric)
			}
		}
		b.WriteString("\n")
	}

	writeSection(&b, "Reflection questions", d.ReflectionQuestions, format)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSection(b *strings.Builder, title string, items []string, format feedback.Format) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	if format == feedback.FormatNarrative {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = sentence(it)
		}
		fmt.Fprintf(b, "%s\n\n", strings.Join(parts, " "))
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}

// HTML converts Markdown to HTML.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

var (
	headingRe = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	olRe      = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulRe      = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liRe      = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)

	headingSizes = map[string]string{"1": "24px", "2": "20px", "3": "18px", "4": "16px", "5": "15px", "6": "14px"}
)

// Inline rewrites headings as styled paragraphs and flattens lists into
// numbered or bulleted paragraphs, for clients that drop list and heading
// styling (chat webhooks, mail previews). Bullet lists go first so items
// nested under a numbered entry are already flat.
func Inline(html string) string {
	html = headingRe.ReplaceAllStringFunc(html, func(block string) string {
		parts := headingRe.FindStringSubmatch(block)
		size := headingSizes[parts[1]]
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, strings.TrimSpace(parts[2]))
	})
	html = ulRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "<p>• %s</p>", strings.TrimSpace(item[1]))
		}
		return b.String()
	})
	html = olRe.ReplaceAllStringFunc(html, func(block string) string {
		items := liRe.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>", i+1, strings.TrimSpace(item[1]))
		}
		return b.String()
	})
	return html
}

// Digest compacts whitespace and cuts the text to at most limit bytes.
func Digest(text string, limit int) string {
	joined := strings.Join(strings.Fields(text), " ")
	if len(joined) <= limit {
		return joined
	}
	cut := joined[:limit]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
