package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mailtriage/mailtriage/internal/classifier"
	"github.com/mailtriage/mailtriage/internal/extract"
	"github.com/mailtriage/mailtriage/internal/triage"
)

func classifyCmd() *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify one email and print the suggested reply",
		Long: `Classify email text given as an argument, read from --file, or read
from standard input when neither is given.

Files are read the same way as web uploads: .txt, .eml, .html, .pdf and
images (OCR through tesseract).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, file, asJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the email from a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string, file string, asJSON bool) error {
	if file != "" && len(args) > 0 {
		return fmt.Errorf("pass either text or --file, not both")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	var text string
	document := file != ""
	switch {
	case document:
		text, err = readFile(cmd, extract.New(cfg.Extract), file)
		if err != nil {
			return err
		}
	case len(args) == 1:
		text = args[0]
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = extract.DecodeText(data)
	}

	var analysis *triage.Analysis
	if document {
		analysis, err = analyzer.AnalyzeDocument(text)
	} else {
		analysis, err = analyzer.Analyze(text)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Fprintf(out, "Category:   %s\n", analysis.Category)
	fmt.Fprintf(out, "Confidence: %.3f\n", analysis.Confidence)
	fmt.Fprintf(out, "Subtype:    %s\n", analysis.Subtype)
	if analysis.Protocol != "" {
		fmt.Fprintf(out, "Protocol:   %s\n", analysis.Protocol)
	}
	if analysis.CharsRead > 0 {
		fmt.Fprintf(out, "Chars read: %d\n", analysis.CharsRead)
	}
	if kw, ok := classifier.MatchedKeyword(text); ok {
		fmt.Fprintf(out, "Keyword:    %q\n", kw)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, analysis.Reply)
	return nil
}

func readFile(cmd *cobra.Command, ex *extract.Extractor, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	text, err := ex.Extract(cmd.Context(), filepath.Base(path), contentType, f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return text, nil
}

func corpusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "corpus",
		Short: "Show the training examples and how the model scores them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(cmd)
		},
	}
}

func runCorpus(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}
	examples, err := classifier.DefaultCorpus()
	if err != nil {
		return err
	}

	model := analyzer.Classifier().Model()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Training examples: %d\n", len(examples))
	fmt.Fprintf(out, "Vocabulary:        %d stems\n", model.Vectorizer().NumFeatures())
	fmt.Fprintf(out, "Iterations:        %d (converged: %v)\n", model.Iterations(), model.Converged())
	fmt.Fprintln(out)

	correct := 0
	for _, ex := range examples {
		result := model.Predict(ex.Text)
		mark := "ok"
		if result.Category == ex.Label {
			correct++
		} else {
			mark = "MISS"
		}
		fmt.Fprintf(out, "%-4s %-12s %.3f  %s\n", mark, ex.Label, result.Confidence, ex.Text)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Training accuracy: %d/%d\n", correct, len(examples))
	fmt.Fprintf(out, "Override keywords: %s\n", strings.Join(classifier.Keywords(), ", "))
	return nil
}
