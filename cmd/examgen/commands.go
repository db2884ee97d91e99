package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/examgen/internal/export"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/inspect"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/termview"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an exam with the LLM and write it to a file",
		RunE:  runGenerate,
	}
	def := model.DefaultGenerationRequest()
	f := cmd.Flags()
	addLLMFlags(f)
	addLangFlag(f)
	f.String("subject", def.Subject, "Subject")
	f.String("grade", def.Grade, "Grade level")
	f.String("difficulty", string(def.Difficulty), "Difficulty (easy, medium, hard)")
	f.StringP("type", "t", string(def.QuestionType), "Question type (multiple_choice, true_false, fill_in_the_blank, essay)")
	f.IntP("num-questions", "n", def.NumQuestions, "Number of questions")
	f.Bool("randomize", def.Randomize, "Shuffle question order and options")
	f.Bool("explanations", def.IncludeExplanations, "Include explanations")
	f.String("source", "", "Text file to convert into questions")
	f.StringP("output", "o", "exam.json", "Exam file to write (.json, .yaml or .yml)")
	f.StringSlice("export", nil, "Also export these formats (json, document, interactive)")
	f.String("out-dir", ".", "Directory for exported artifacts")
	f.String("mathjax-url", export.DefaultMathJaxURL, "MathJax script URL referenced by the interactive page")
	f.Duration("timeout", 0, "Give up after this long (0 = no limit)")
	addLogFlags(f)
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	v := commandConfig(cmd)

	lang, err := initLang(v)
	if err != nil {
		return err
	}
	req := model.GenerationRequest{
		Subject:             v.GetString("subject"),
		Grade:               v.GetString("grade"),
		Difficulty:          model.Difficulty(v.GetString("difficulty")),
		QuestionType:        model.QuestionType(v.GetString("type")),
		NumQuestions:        v.GetInt("num-questions"),
		Randomize:           v.GetBool("randomize"),
		IncludeExplanations: v.GetBool("explanations"),
	}
	if src := v.GetString("source"); src != "" {
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read source text: %w", err)
		}
		req.SourceText = string(data)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	client, err := newLLMClient(v, lang)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if d := v.GetDuration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	exam, err := client.Generate(ctx, req)
	if err != nil {
		return err
	}

	out := v.GetString("output")
	data, err := model.EncodeExam(exam, filepath.Ext(out))
	if err != nil {
		return fmt.Errorf("encode exam: %w", err)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	slog.Info("exam written", "path", out, "questions", len(exam.Questions))

	formats, err := parseFormats(v.GetStringSlice("export"))
	if err != nil {
		return err
	}
	return exportAll(ctx, cmd.OutOrStdout(), exam, lang, v, formats)
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <exam-file>",
		Short: "Export an exam file as JSON, DOCX and/or interactive HTML",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	f := cmd.Flags()
	addLangFlag(f)
	f.StringSliceP("format", "f", []string{"json", "document", "interactive"}, "Formats to export")
	f.StringP("out-dir", "o", ".", "Directory for exported artifacts")
	f.String("mathjax-url", export.DefaultMathJaxURL, "MathJax script URL referenced by the interactive page")
	addLogFlags(f)
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	v := commandConfig(cmd)

	lang, err := initLang(v)
	if err != nil {
		return err
	}
	exam, err := model.LoadExamFile(args[0])
	if err != nil {
		return err
	}
	formats, err := parseFormats(v.GetStringSlice("format"))
	if err != nil {
		return err
	}
	if len(formats) == 0 {
		return fmt.Errorf("no export format given")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return exportAll(ctx, cmd.OutOrStdout(), exam, lang, v, formats)
}

func parseFormats(names []string) ([]export.Format, error) {
	var formats []export.Format
	for _, name := range names {
		f, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// exportAll writes every format to the output directory, stopping at the first
// failure, and prints the path of each file written to w.
func exportAll(ctx context.Context, w io.Writer, exam model.Exam, lang string, v *viper.Viper, formats []export.Format) error {
	if len(formats) == 0 {
		return nil
	}
	mathJaxURL := v.GetString("mathjax-url")
	d := export.NewDispatcher(export.Options{Labels: appI18n.LabelsFor(lang), MathJaxURL: mathJaxURL})
	saver := export.DirSaver{Dir: v.GetString("out-dir")}
	for _, f := range formats {
		a, err := d.Export(ctx, exam, f, saver)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, filepath.Join(saver.Dir, a.FileName))
	}
	return nil
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <exam-file>",
		Short: "Print an exam file to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	f := cmd.Flags()
	addLangFlag(f)
	f.BoolP("answers", "a", false, "Include answers and explanations")
	f.Bool("no-color", false, "Disable colored output")
	addLogFlags(f)
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	v := commandConfig(cmd)

	lang, err := initLang(v)
	if err != nil {
		return err
	}
	exam, err := model.LoadExamFile(args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), termview.Render(exam, appI18n.LabelsFor(lang), termview.Options{
		Answers: v.GetBool("answers"),
		NoColor: v.GetBool("no-color"),
	}))
	return err
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <interactive-exam.html>",
		Short: "List the scorable units of an interactive page and optionally grade answers",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	f := cmd.Flags()
	f.StringToString("answer", nil, "Response for a unit, as unit-id=value (repeatable)")
	addLogFlags(f)
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	commandConfig(cmd)

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer file.Close()

	page, err := inspect.Parse(file)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", page.Title, page.Lang)
	for _, u := range page.Units() {
		mark := " "
		if u.Counts() {
			mark = "*"
		}
		key := "-"
		if u.HasKey {
			key = u.Key
		}
		fmt.Fprintf(out, "%s %-24s %-18s %s\n", mark, u.ID, u.Type, key)
	}
	fmt.Fprintf(out, "scorable units: %d\n", page.ScorableCount())

	answers, err := cmd.Flags().GetStringToString("answer")
	if err != nil {
		return err
	}
	if len(answers) == 0 {
		return nil
	}
	for id := range answers {
		if _, ok := page.Container(id); !ok {
			return fmt.Errorf("unknown unit %q", id)
		}
	}

	result, err := page.NewSession().Grade(answers)
	if err != nil {
		return err
	}
	for _, o := range result.Outcomes {
		status := "correct"
		if !o.Correct {
			status = "wrong   " + o.Note
		}
		fmt.Fprintf(out, "%-24s %s\n", o.UnitID, status)
	}
	fmt.Fprintln(out, strings.TrimSpace(result.Text))
	return nil
}
