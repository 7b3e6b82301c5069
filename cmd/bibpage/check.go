package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/bibpage/internal/linkcheck"
	"github.com/matsen/bibpage/internal/logging"
	"github.com/matsen/bibpage/internal/normalize"
	"github.com/matsen/bibpage/internal/pdf"
	"github.com/matsen/bibpage/internal/record"
	"github.com/spf13/cobra"
)

var (
	checkBibtex      string
	checkFiles       bool
	checkPDF         bool
	checkLinks       bool
	checkRate        float64
	checkConcurrency int
)

func init() {
	checkCmd.Flags().StringVar(&checkBibtex, "bibtex", "", "BibTeX/BibLaTeX file to check (required)")
	checkCmd.Flags().BoolVar(&checkFiles, "files", false, "Check that linked files exist")
	checkCmd.Flags().BoolVar(&checkPDF, "pdf", false, "Compare each linked PDF's DOI with the entry's (implies --files)")
	checkCmd.Flags().BoolVar(&checkLinks, "links", false, "Check that url and doi links resolve")
	checkCmd.Flags().Float64Var(&checkRate, "rate", 0, "Link checks per second (default: link_rate config or 5)")
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", linkcheck.DefaultConcurrency, "Links checked at once")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report problems in a bibliography",
	Long: `Report problems in a bibliography.

Always reported:
  rejected          entry has no usable author or title
  duplicate_key     citation key used by more than one entry
  file_undecodable  file field is not a JabRef ":path:PDF" reference

Optional:
  --files  missing_file    linked file not found (relative paths use pdf_root)
  --pdf    doi_mismatch    DOI printed in the PDF differs from the entry's
  --links  broken_link     url or doi does not resolve

Exits with status 5 when any issue is found.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status   string       `json:"status"`
	Entries  int          `json:"entries"`
	Rejected int          `json:"rejected"`
	Issues   []CheckIssue `json:"issues"`
}

// CheckIssue represents a single issue found during check.
type CheckIssue struct {
	Type     string `json:"type"`
	Key      string `json:"key,omitempty"`
	Field    string `json:"field,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Count    int    `json:"count,omitempty"`
	Path     string `json:"path,omitempty"`
	Expected string `json:"expected,omitempty"`
	Found    string `json:"found,omitempty"`
	URL      string `json:"url,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	log := newLogger(cfg)
	l := mustLoadBibliography(ctx, checkBibtex, cfg.Workers, log)

	issues := structuralIssues(l)
	if checkFiles || checkPDF {
		issues = append(issues, fileIssues(ctx, l.Collection, cfg.PDFRoot, checkPDF, log)...)
	}
	if checkLinks {
		rate := checkRate
		if rate == 0 {
			rate = cfg.LinkRate
		}
		if rate == 0 {
			rate = linkcheck.DefaultRateLimit
		}
		client := linkcheck.NewClient(linkcheck.WithRateLimit(rate))
		linkIssues, err := brokenLinks(ctx, client, l.Collection, checkConcurrency)
		if err != nil {
			if linkcheck.IsCanceled(err) {
				exitWithError(ExitError, "interrupted")
			}
			exitWithError(ExitError, "%v", err)
		}
		issues = append(issues, linkIssues...)
	}

	result := CheckResult{
		Status:   "ok",
		Entries:  len(l.Collection),
		Rejected: len(l.Rejected),
		Issues:   issues,
	}
	if len(issues) > 0 {
		result.Status = "issues_found"
	}
	if result.Issues == nil {
		result.Issues = []CheckIssue{}
	}

	if humanOutput {
		printCheckResult(result)
	} else {
		outputJSON(result)
	}

	if len(issues) > 0 {
		os.Exit(ExitCheckIssues)
	}
	return nil
}

// structuralIssues reports rejected entries, duplicate keys and file
// fields that are not JabRef PDF references.
func structuralIssues(l *loaded) []CheckIssue {
	var issues []CheckIssue

	for _, r := range l.Rejected {
		index := r.Index
		issues = append(issues, CheckIssue{
			Type:   "rejected",
			Key:    r.Key,
			Index:  &index,
			Reason: r.Err.Error(),
		})
	}

	counts := make(map[string]int)
	for _, e := range l.Collection {
		counts[e.Key]++
	}
	for _, key := range l.Collection.DuplicateKeys() {
		issues = append(issues, CheckIssue{
			Type:  "duplicate_key",
			Key:   key,
			Count: counts[key],
		})
	}

	for i, e := range l.Entries {
		raw, err := e.File()
		if err != nil {
			continue
		}
		if _, err := normalize.DecodeFile(raw); errors.Is(err, normalize.ErrPatternMismatch) {
			index := i
			issues = append(issues, CheckIssue{
				Type:   "file_undecodable",
				Key:    e.Key,
				Index:  &index,
				Found:  raw,
				Reason: err.Error(),
			})
		}
	}

	return issues
}

// fileIssues reports linked files that are missing and, with compareDOI,
// PDFs whose embedded DOI differs from the entry's.
func fileIssues(ctx context.Context, coll record.Collection, pdfRoot string, compareDOI bool, log logging.Logger) []CheckIssue {
	var issues []CheckIssue
	for _, e := range coll {
		if e.File == nil {
			continue
		}
		path := pdf.ResolvePath(pdfRoot, *e.File)
		ok, err := pdf.Exists(path)
		if err != nil || !ok {
			issue := CheckIssue{Type: "missing_file", Key: e.Key, Path: path}
			if err != nil {
				issue.Reason = err.Error()
			}
			issues = append(issues, issue)
			continue
		}

		if !compareDOI || e.DOI == nil {
			continue
		}
		found, err := pdf.ExtractDOI(path)
		if err != nil {
			log.Warn(ctx, "could not read PDF", "key", e.Key, "path", path, "error", err)
			continue
		}
		if found != "" && !pdf.SameDOI(found, *e.DOI) {
			issues = append(issues, CheckIssue{
				Type:     "doi_mismatch",
				Key:      e.Key,
				Path:     path,
				Expected: *e.DOI,
				Found:    found,
			})
		}
	}
	return issues
}

// brokenLinks checks every url and doi link in coll.
func brokenLinks(ctx context.Context, client *linkcheck.Client, coll record.Collection, concurrency int) ([]CheckIssue, error) {
	results, err := client.CheckAll(ctx, linkcheck.Targets(coll), concurrency)
	if err != nil {
		return nil, err
	}

	var issues []CheckIssue
	for _, r := range linkcheck.Failed(results) {
		issues = append(issues, CheckIssue{
			Type:   "broken_link",
			Key:    r.Key,
			Field:  r.Field,
			URL:    r.URL,
			Reason: r.Error,
		})
	}
	return issues, nil
}

func printCheckResult(result CheckResult) {
	fmt.Printf("Checked %d entries (%d rejected)\n", result.Entries+result.Rejected, result.Rejected)
	if len(result.Issues) == 0 {
		fmt.Println("No issues found")
		return
	}

	fmt.Printf("Found %d issues:\n\n", len(result.Issues))
	for _, issue := range result.Issues {
		switch issue.Type {
		case "rejected":
			fmt.Printf("  rejected: entry %d (%s): %s\n", *issue.Index, issue.Key, issue.Reason)
		case "duplicate_key":
			fmt.Printf("  duplicate key: %s (%d entries)\n", issue.Key, issue.Count)
		case "file_undecodable":
			fmt.Printf("  undecodable file field: %s: %q\n", issue.Key, issue.Found)
		case "missing_file":
			fmt.Printf("  missing file: %s: %s\n", issue.Key, issue.Path)
		case "doi_mismatch":
			fmt.Printf("  DOI mismatch: %s: entry has %s, PDF has %s\n", issue.Key, issue.Expected, issue.Found)
		case "broken_link":
			fmt.Printf("  broken %s link: %s: %s (%s)\n", issue.Field, issue.Key, issue.URL, issue.Reason)
		default:
			fmt.Printf("  %s: %s %s\n", issue.Type, issue.Key, issue.Reason)
		}
	}
}
