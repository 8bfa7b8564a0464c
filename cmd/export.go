package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/db"
	"github.com/addestra-labs/addestra/internal/progress"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/training"
)

var (
	exportTenant string
	exportOutput string
	exportModule string
	exportKind   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a tenant's training data as JSONL",
	Long: `Writes one JSON object per line: conversations with their full
transcripts, corrections, or rules. Useful for offline analysis and
fine-tuning dataset preparation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportTenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		out := os.Stdout
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		ctx := context.Background()
		var n int
		switch exportKind {
		case "conversations":
			n, err = exportConversations(ctx, database, out)
		case "corrections":
			n, err = exportCorrections(ctx, database, out)
		case "rules":
			n, err = exportRules(ctx, database, out)
		default:
			return fmt.Errorf("invalid --kind %q: must be conversations, corrections or rules", exportKind)
		}
		if err != nil {
			return err
		}

		if out != os.Stdout {
			fmt.Fprintf(os.Stderr, "Exported %d %s to %s\n", n, exportKind, exportOutput)
		}
		return nil
	},
}

func exportConversations(ctx context.Context, database *db.DB, out io.Writer) (int, error) {
	store := training.NewStore(database)
	list, err := store.List(ctx, exportTenant, training.ListFilter{Module: exportModule})
	if err != nil {
		return 0, fmt.Errorf("listing conversations: %w", err)
	}

	// The bar shares the terminal with the JSONL stream, so it only runs
	// when the export goes to a file.
	var reporter progress.Reporter
	if out != os.Stdout {
		reporter = progress.NewReporter("Exporting conversations")
		reporter.Start(len(list))
		defer reporter.Finish()
	}

	enc := json.NewEncoder(out)
	for i, conv := range list {
		full, err := store.GetWithMessages(ctx, exportTenant, conv.ID)
		if err != nil {
			return 0, fmt.Errorf("loading conversation %s: %w", conv.ID, err)
		}
		if err := enc.Encode(full); err != nil {
			return 0, fmt.Errorf("writing conversation %s: %w", conv.ID, err)
		}
		if reporter != nil {
			reporter.Update(i+1, conv.ID)
		}
	}
	return len(list), nil
}

func exportCorrections(ctx context.Context, database *db.DB, out io.Writer) (int, error) {
	list, err := corrections.NewStore(database).List(ctx, exportTenant,
		corrections.ListFilter{Module: exportModule})
	if err != nil {
		return 0, fmt.Errorf("listing corrections: %w", err)
	}

	enc := json.NewEncoder(out)
	for _, c := range list {
		if err := enc.Encode(c); err != nil {
			return 0, fmt.Errorf("writing correction %s: %w", c.ID, err)
		}
	}
	return len(list), nil
}

func exportRules(ctx context.Context, database *db.DB, out io.Writer) (int, error) {
	list, err := rules.NewStore(database).List(ctx, exportTenant,
		rules.ListFilter{Module: exportModule})
	if err != nil {
		return 0, fmt.Errorf("listing rules: %w", err)
	}

	enc := json.NewEncoder(out)
	for _, r := range list {
		if err := enc.Encode(r); err != nil {
			return 0, fmt.Errorf("writing rule %s: %w", r.ID, err)
		}
	}
	return len(list), nil
}

func init() {
	exportCmd.Flags().StringVar(&exportTenant, "tenant", "", "tenant to export")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportModule, "module", "", "only export records for this module")
	exportCmd.Flags().StringVar(&exportKind, "kind", "conversations", "what to export: conversations, corrections or rules")
	rootCmd.AddCommand(exportCmd)
}
