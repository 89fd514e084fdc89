package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/search"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// Request is one chat question.
type Request struct {
	DataContext   *DataContext `json:"data_context,omitempty"`
	Message       string       `json:"message"`
	CurrentReport string       `json:"current_report,omitempty"`
	History       []Message    `json:"history,omitempty"`
}

// Context is everything retrieved for a question.
type Context struct {
	Action        Action                    `json:"action_type"`
	Instruction   string                    `json:"instruction"`
	RecordContext string                    `json:"record_context"`
	Prompt        string                    `json:"-"`
	Chunks        []models.RetrievedContext `json:"chunks"`
	Sources       []string                  `json:"sources"`
	DataQuery     bool                      `json:"data_query"`
}

// Reply is a chat answer.
type Reply struct {
	Response string   `json:"response"`
	Action   Action   `json:"action_type"`
	Sources  []string `json:"sources"`
	Limited  bool     `json:"limited"`
}

// Engine answers questions from report chunks and the current dataset.
type Engine struct {
	search *search.Manager
	data   *constellation.Holder
	gen    Generator
	budget *Budget
	topK   int
}

// NewEngine creates a chat engine. gen may be nil, in which case every reply
// is a limited-mode answer.
func NewEngine(sm *search.Manager, data *constellation.Holder, gen Generator, budget *Budget, topK int) *Engine {
	if topK <= 0 {
		topK = search.DefaultTopK
	}
	return &Engine{search: sm, data: data, gen: gen, budget: budget, topK: topK}
}

// HasGenerator reports whether replies come from a text generator.
func (e *Engine) HasGenerator() bool { return e.gen != nil }

// Retrieve gathers ranked report chunks and record context for req. Record
// search and dataset statistics are skipped while no dataset is loaded.
func (e *Engine) Retrieve(req Request) *Context {
	action := ClassifyAction(req.Message)
	c := &Context{
		Action:      action,
		Instruction: action.Instruction(),
		DataQuery:   IsDataQuery(req.Message),
		Chunks:      e.search.Retrieve(req.Message, req.CurrentReport, e.topK),
	}
	if c.Chunks == nil {
		c.Chunks = []models.RetrievedContext{}
	}
	c.Sources = make([]string, len(c.Chunks))
	for i := range c.Chunks {
		c.Sources[i] = c.Chunks[i].Source
	}

	var totalJobs, numClusters int
	if ds := e.data.Load(); ds != nil {
		totalJobs, numClusters = len(ds.Jobs), len(ds.Clusters)
		c.RecordContext = search.FormatRecordContext(search.SearchRecords(ds.Jobs, req.Message))
		if c.DataQuery {
			c.RecordContext += DataAnalysisContext(ds, req.Message)
		}
	}
	if c.DataQuery {
		c.Instruction += dataModeInstruction
	}

	system := BuildSystemPrompt(totalJobs, numClusters, req.CurrentReport, e.search.ReportContext(req.CurrentReport), req.DataContext)
	user := BuildUserPrompt(req.Message, action, c.Instruction, AssembleContext(c.Chunks, c.RecordContext, e.budget))
	c.Prompt = system + "\n\n" + user
	return c
}

// Chat answers req. Generator failures degrade to a limited-mode answer
// rather than an error.
func (e *Engine) Chat(ctx context.Context, req Request) *Reply {
	c := e.Retrieve(req)
	log.Debug().
		Str("action", string(c.Action)).
		Bool("data_query", c.DataQuery).
		Int("chunks", len(c.Chunks)).
		Str("query", truncate(strings.TrimSpace(req.Message), 50)).
		Msg("Chat context retrieved")

	reply := &Reply{Action: c.Action, Sources: c.Sources}
	if e.gen != nil {
		text, err := e.gen.Generate(ctx, req.History, c.Prompt)
		if err == nil {
			reply.Response = text
			return reply
		}
		log.Error().Err(err).Msg("Generator failed, answering in limited mode")
	}
	reply.Response = LimitedAnswer(c.Chunks, c.RecordContext)
	reply.Limited = true
	return reply
}
