package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/goatcheese98/career-constellation/internal/chat"
	"github.com/goatcheese98/career-constellation/internal/chunking"
	"github.com/goatcheese98/career-constellation/internal/collections"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/search"
	"github.com/goatcheese98/career-constellation/internal/worker"
)

var (
	askReport  string
	askTopK    int
	askRecords bool
	askJSON    bool
	askAnswer  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Show the retrieval context for a question",
	Long: `Ranks report chunks for the question, current report first, and prints
them with the record search context. With --answer the context is sent to the
configured generator, or summarised in limited mode without one.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askReport, "report", "r", "", "current report; its chunks rank first")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", search.DefaultTopK, "number of chunks to retrieve")
	askCmd.Flags().BoolVar(&askRecords, "records", false, "build the constellation to add record context")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the context as JSON")
	askCmd.Flags().BoolVar(&askAnswer, "answer", false, "answer the question instead of printing the context")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	catalog, err := collections.Load(cfg.CollectionsPath)
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	sm := search.NewManager(chunking.NewDefaultManager(chunking.DefaultChunkOptions()), catalog, cfg.ReportsDir)
	if err := sm.LoadReports(ctx); err != nil {
		return err
	}

	holder := &constellation.Holder{}
	if askRecords {
		ds, err := buildDataset(ctx)
		if err != nil {
			return err
		}
		holder.Store(ds)
	}

	var gen chat.Generator
	if askAnswer {
		gen = worker.NewGenerator(ctx, cfg)
	}
	engine := chat.NewEngine(sm, holder, gen, chat.NewBudget(cfg.ContextTokens), askTopK)
	req := chat.Request{Message: question, CurrentReport: askReport}

	if askAnswer {
		reply := engine.Chat(ctx, req)
		cmd.Println(reply.Response)
		if len(reply.Sources) > 0 {
			cmd.Printf("\nSources: %s\n", strings.Join(reply.Sources, ", "))
		}
		return nil
	}

	rc := engine.Retrieve(req)
	if askJSON {
		data, err := json.MarshalIndent(rc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal context: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Action: %s\n", rc.Action)
	if len(rc.Chunks) == 0 {
		cmd.Println("No report chunks matched.")
	} else {
		cmd.Println("Chunks:")
		cmd.Println()
		for i, c := range rc.Chunks {
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, c.Source, c.RelevanceScore)
			cmd.Printf("      %s\n", firstLine(c.Content))
		}
	}
	if rc.RecordContext != "" {
		cmd.Println()
		cmd.Println(strings.TrimSpace(rc.RecordContext))
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120]) + "..."
	}
	return s
}
