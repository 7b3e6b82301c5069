package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matsen/bibpage/internal/render"
	"github.com/spf13/cobra"
)

var (
	renderBibtex   string
	renderTemplate string
	renderEmbedJS  bool
	renderJSFile   string
	renderTitle    string
	renderWorkers  int

	renderPrintTemplate bool
	renderPrintScript   bool
)

func init() {
	renderCmd.Flags().StringVar(&renderBibtex, "bibtex", "", "BibTeX/BibLaTeX file to render (required)")
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "Custom page template (default: built-in sortable table)")
	renderCmd.Flags().BoolVar(&renderEmbedJS, "embed-js", false, "Inline the filter/sort script into the page")
	renderCmd.Flags().StringVar(&renderJSFile, "js-file", "", "Script to inline instead of the built-in one (implies --embed-js)")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "Page title")
	renderCmd.Flags().IntVar(&renderWorkers, "workers", 0, "Normalize on N goroutines (0: sequential)")
	renderCmd.Flags().BoolVar(&renderPrintTemplate, "print-template", false, "Print the built-in template and exit")
	renderCmd.Flags().BoolVar(&renderPrintScript, "print-script", false, "Print the built-in script and exit")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render OUTPUT",
	Short: "Render a bibliography to an HTML page",
	Long: `Render a bibliography to an HTML page.

The bibliography is parsed, normalized and passed to the template as
"biblio". Entries missing an author or title are skipped and logged.
Use "-" as OUTPUT to write the page to stdout.

--print-template and --print-script write the built-in template or
script to stdout, as a starting point for a custom one.

Template and script defaults come from the config file
(template, js_file, embed_js, title) and BIBPAGE_TEMPLATE / BIBPAGE_JS_FILE.

Examples:
  bibpage render index.html --bibtex refs.bib
  bibpage render - --bibtex refs.bib --embed-js > index.html
  bibpage render page.html --bibtex refs.bib --template mine.html
  bibpage render --print-template > mine.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderPrintTemplate || renderPrintScript {
		if err := printBuiltin(os.Stdout, renderPrintTemplate, renderPrintScript); err != nil {
			exitWithError(ExitError, "writing output: %v", err)
		}
		return nil
	}
	if len(args) == 0 {
		exitWithError(ExitError, "OUTPUT is required (use - for stdout)")
	}

	ctx := cmd.Context()
	output := args[0]
	cfg := mustLoadConfig()
	log := newLogger(cfg)

	opts, err := renderOptions(
		firstNonEmpty(renderTemplate, cfg.Template),
		firstNonEmpty(renderJSFile, cfg.JSFile),
		renderEmbedJS || cfg.EmbedJS,
		firstNonEmpty(renderTitle, cfg.Title),
	)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	workers := effectiveWorkers(renderWorkers, cmd.Flags().Changed("workers"), cfg)
	l := mustLoadBibliography(ctx, renderBibtex, workers, log)

	page, err := render.RenderString(l.Collection, opts)
	if err != nil {
		var re *render.RenderError
		if errors.As(err, &re) {
			exitWithError(ExitRenderError, "%v", re)
		}
		exitWithError(ExitError, "rendering: %v", err)
	}

	if output == "-" {
		fmt.Print(page)
		return nil
	}
	if err := os.WriteFile(output, []byte(page), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", output, err)
	}
	log.Info(ctx, "wrote page", "path", output)

	if humanOutput {
		fmt.Printf("Rendered %d entries to %s", len(l.Collection), output)
		if len(l.Rejected) > 0 {
			fmt.Printf(" (%d rejected)", len(l.Rejected))
		}
		fmt.Println()
	} else {
		outputJSON(RenderResponse{
			Status:   "rendered",
			Entries:  len(l.Collection),
			Rejected: len(l.Rejected),
			Output:   output,
		})
	}
	return nil
}

// renderOptions reads the template and script files into render options.
// A script file turns embedding on.
func renderOptions(templatePath, jsPath string, embed bool, title string) (render.Options, error) {
	tmpl, err := readOptionalFile(templatePath)
	if err != nil {
		return render.Options{}, fmt.Errorf("reading template: %w", err)
	}
	script, err := readOptionalFile(jsPath)
	if err != nil {
		return render.Options{}, fmt.Errorf("reading script: %w", err)
	}
	return render.Options{
		TemplateText: tmpl,
		Title:        title,
		EmbedScript:  embed || jsPath != "",
		Script:       script,
	}, nil
}

// printBuiltin writes the built-in template and/or script to w.
func printBuiltin(w io.Writer, tmpl, script bool) error {
	if tmpl {
		if _, err := io.WriteString(w, render.DefaultTemplate()); err != nil {
			return err
		}
	}
	if script {
		if _, err := io.WriteString(w, render.DefaultScript()); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
