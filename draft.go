package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alimasry/lumina/assistant"
	"github.com/alimasry/lumina/i18n"
	"github.com/alimasry/lumina/render"
)

var (
	draftPrompt string
	draftFiles  []string
	draftLang   string
	draftHTML   bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Write a first draft from a prompt and print it",
	Example: `  lumina draft --prompt "a short essay on tea" --file notes.pdf
  lumina draft -p "письмо другу" --lang ru --html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lang := i18n.Parse(draftLang)

		var attachments []assistant.FileAttachment
		for _, path := range draftFiles {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read attachment: %w", err)
			}
			attachments = append(attachments, assistant.NewAttachment(filepath.Base(path), "", data))
		}

		client, err := assistant.NewGemini(ctx, cfg.Assistant.APIKey, assistantConfig(cfg.Assistant), logger)
		if err != nil {
			return err
		}
		text, err := client.GenerateDraft(ctx, draftPrompt, attachments, lang)
		if err != nil {
			return fmt.Errorf("generate draft: %w", err)
		}

		out := cmd.OutOrStdout()
		if draftHTML {
			fmt.Fprintf(out, "<!-- %s -->\n%s", assistant.DraftTitle(text, lang), render.Markdown(text))
			return nil
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	draftCmd.Flags().StringVarP(&draftPrompt, "prompt", "p", "", "What to write (required)")
	draftCmd.Flags().StringSliceVarP(&draftFiles, "file", "f", nil, "Attach a file (repeatable)")
	draftCmd.Flags().StringVar(&draftLang, "lang", "en", "Draft language (en, ru)")
	draftCmd.Flags().BoolVar(&draftHTML, "html", false, "Print rendered HTML instead of markdown")
	draftCmd.MarkFlagRequired("prompt")
}
