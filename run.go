package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"feedback_agent/config"
	"feedback_agent/feedback"
	"feedback_agent/intake"
)

var (
	runText          string
	runTopic         string
	runGoals         []string
	runContext       string
	runTone          string
	runFormat        string
	runConstraints   []string
	runMaxIterations int
	runOutput        string
	runPublish       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, review and revise feedback for one request",
	Example: `  feedback-agent run --text "I want to improve my confidence at work" --goal "Speak up in meetings"
  echo "Help me plan better sleep" | feedback-agent run --text - --output markdown`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runText, "text", "", `raw request text ("-" reads stdin)`)
	f.StringVar(&runTopic, "topic", "", "explicit topic")
	f.StringArrayVar(&runGoals, "goal", nil, "goal (repeatable)")
	f.StringVar(&runContext, "context", "", "background about the person")
	f.StringVar(&runTone, "tone", "", "supportive, direct or balanced")
	f.StringVar(&runFormat, "format", "", "bullet, narrative or hybrid")
	f.StringArrayVar(&runConstraints, "constraint", nil, "extra style rule (repeatable)")
	f.IntVar(&runMaxIterations, "max-iterations", -1, "revision budget (default from config)")
	f.StringVarP(&runOutput, "output", "o", "json", "json, markdown or html")
	f.BoolVar(&runPublish, "publish", false, "also write documents and call the webhook")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	switch runOutput {
	case "json", "markdown", "html":
	default:
		return fmt.Errorf("unknown output %q", runOutput)
	}
	text := runText
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" && strings.TrimSpace(runTopic) == "" {
		return fmt.Errorf("--text or --topic is required")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, func(c *config.Config) {
		if runMaxIterations >= 0 {
			c.Pipeline.MaxIterations = runMaxIterations
		}
	})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	packet, err := a.intake.Process(ctx, intake.Request{
		RawText:      text,
		Topic:        runTopic,
		Goals:        runGoals,
		Context:      runContext,
		Tone:         runTone,
		OutputFormat: runFormat,
		Constraints:  runConstraints,
	})
	if err != nil {
		return err
	}
	if packet.ClarificationNeeded {
		a.log.WithField("confidence", packet.Confidence).Warn("request is broad, feedback may be generic")
	}

	result, err := a.pipeline.Run(ctx, packet)
	if err != nil {
		return err
	}
	printStatus(cmd.ErrOrStderr(), result)

	if runPublish {
		doc, err := a.pub.Publish(ctx, result, packet.Persona.Preferences.Format)
		if err != nil {
			return err
		}
		for _, f := range doc.Files {
			fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("wrote "+f))
		}
	}
	return writeResult(cmd.OutOrStdout(), a, result, packet.Persona.Preferences.Format)
}

func writeResult(w io.Writer, a *app, result feedback.RunResult, layout feedback.Format) error {
	if runOutput == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	doc, err := a.pub.Render(result, layout)
	if err != nil {
		return err
	}
	if runOutput == "html" {
		_, err = io.WriteString(w, doc.HTML)
	} else {
		_, err = io.WriteString(w, doc.Markdown)
	}
	return err
}
