package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/solatis/jsonforge/internal/core/api"
	"github.com/solatis/jsonforge/internal/document"
)

var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Transform a JSON document read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().String("rules", "", "rules file (YAML or JSON)")
	transformCmd.Flags().Bool("pretty", false, "indent the output document")
	transformCmd.Flags().Bool("diff", false, "print a line diff of input and output instead of the document")
	transformCmd.Flags().StringP("output", "o", "", "write the document to a file instead of stdout")
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	deps, cleanup := collaborators(cfg)
	defer cleanup()

	engine, _, err := buildEngine(cfg, logger, deps)
	if err != nil {
		return err
	}
	svc, err := api.NewTransformService(engine,
		api.WithLogger(logger),
		api.WithMaxDocumentSize(cfg.Transform.MaxDocumentSize),
	)
	if err != nil {
		return err
	}

	input, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	out, err := svc.Transform(cmd.Context(), input)
	if err != nil {
		return err
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	showDiff, _ := cmd.Flags().GetBool("diff")
	result := out.Document
	switch {
	case showDiff:
		from, err := indented(input)
		if err != nil {
			return err
		}
		to, err := indented(out.Document)
		if err != nil {
			return err
		}
		result = []byte(lineDiff(string(from), string(to)))
	case pretty:
		if result, err = indented(out.Document); err != nil {
			return err
		}
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return os.WriteFile(path, ensureNewline(result), 0o644)
	}
	_, err = cmd.OutOrStdout().Write(ensureNewline(result))
	return err
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func indented(data []byte) ([]byte, error) {
	doc, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.Indent("  ")
}

// lineDiff renders the line-level differences between a and b, prefixing
// removed lines with "-", added lines with "+" and unchanged lines with " ".
func lineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func ensureNewline(b []byte) []byte {
	if len(b) == 0 || bytes.HasSuffix(b, []byte("\n")) {
		return b
	}
	return append(b, '\n')
}
