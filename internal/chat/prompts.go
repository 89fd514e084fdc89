package chat

import (
	"fmt"
	"strings"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	chunkPreviewChars    = 1000
	fallbackPreviewChars = 300
	fallbackChunks       = 3
	noContextMessage     = "No specific documents retrieved for this query."
)

const basePrompt = `You are an AI Career Assistant specializing in the methanol and chemical process industries. You help professionals navigate their careers with data-driven insights.

CORE CAPABILITIES:
1. Analyze career paths, skills requirements, and progression strategies
2. Provide compensation benchmarks and industry comparisons
3. Explain energy transition impacts on job roles and required skills
4. Answer questions about competitive landscape and market trends
5. Match user profiles to relevant job opportunities
6. Query and analyze the full job dataset (%d postings, %d clusters)

RESPONSE GUIDELINES:
- Be SPECIFIC: Use concrete data from the reports (salary ranges, years of experience, certification requirements)
- Be ACTIONABLE: End responses with clear next steps the user can take
- CITE SOURCES: Reference specific report sections or job postings
- CONSIDER CONTEXT: Factor in the user's current report view, active filters, and question history
- BE HONEST: Acknowledge uncertainty when data is incomplete or speculative
- USE DATA: When asked about patterns, trends, or analysis, query the dataset and provide concrete statistics`

const dataModeInstruction = "\n\nDATA ANALYSIS MODE: When answering, use specific numbers from the dataset context provided. Calculate percentages, counts, and provide statistical insights."

// DataContext describes what the user is looking at in the client.
type DataContext struct {
	ActiveFilters    map[string]string `json:"active_filters,omitempty"`
	DatasetName      string            `json:"dataset_name,omitempty"`
	SearchQuery      string            `json:"search_query,omitempty"`
	AvailableColumns []string          `json:"available_columns,omitempty"`
	SelectedClusters []int             `json:"selected_clusters,omitempty"`
	TotalJobs        int               `json:"total_jobs,omitempty"`
	NumClusters      int               `json:"num_clusters,omitempty"`
}

var defaultColumns = []string{"title", "level", "scope", "summary", "responsibilities", "qualifications"}

// BuildSystemPrompt builds the generator preamble. totalJobs and numClusters
// describe the live dataset; reportContext is catalog framing for the
// current report.
func BuildSystemPrompt(totalJobs, numClusters int, currentReport, reportContext string, dc *DataContext) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(basePrompt, totalJobs, numClusters))

	if currentReport != "" {
		sb.WriteString(fmt.Sprintf("\n\nACTIVE REPORT: The user is currently reading: %s\nPrioritize information from this report in your response.", currentReport))
		if reportContext != "" {
			sb.WriteString("\n\nREPORT BACKGROUND:\n")
			sb.WriteString(reportContext)
		}
	}

	if dc != nil {
		name := dc.DatasetName
		if name == "" {
			name = "job postings"
		}
		jobs, clusters := dc.TotalJobs, dc.NumClusters
		if jobs == 0 {
			jobs = totalJobs
		}
		if clusters == 0 {
			clusters = numClusters
		}
		columns := dc.AvailableColumns
		if len(columns) == 0 {
			columns = defaultColumns
		}
		sb.WriteString("\n\nDATA PIPELINE CONTEXT:")
		sb.WriteString(fmt.Sprintf("\n- Dataset: %s", name))
		sb.WriteString(fmt.Sprintf("\n- Total Jobs: %d", jobs))
		sb.WriteString(fmt.Sprintf("\n- Clusters: %d", clusters))
		sb.WriteString(fmt.Sprintf("\n- Available Columns: %s", strings.Join(columns, ", ")))
		if len(dc.SelectedClusters) > 0 {
			sb.WriteString(fmt.Sprintf("\n- User is viewing clusters: %v", dc.SelectedClusters))
		}
		if dc.SearchQuery != "" {
			sb.WriteString(fmt.Sprintf("\n- User searched for: '%s'", dc.SearchQuery))
		}
		if len(dc.ActiveFilters) > 0 {
			sb.WriteString(fmt.Sprintf("\n- Active filters: %v", dc.ActiveFilters))
		}
		sb.WriteString("\n\nWhen the user asks about data analysis, patterns, or statistics, leverage this context to provide specific insights from the dataset.")
	}

	return sb.String()
}

// BuildUserPrompt wraps the question, the action instruction and the
// assembled context.
func BuildUserPrompt(message string, action Action, instruction, retrieved string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("USER QUESTION: %s\n\n", message))
	sb.WriteString(fmt.Sprintf("INTENDED ACTION: %s\n", action))
	sb.WriteString(fmt.Sprintf("INSTRUCTION: %s\n\n", instruction))
	sb.WriteString("RETRIEVED CONTEXT:\n")
	sb.WriteString(retrieved)
	sb.WriteString("\n\nPlease provide a helpful, specific response. Structure your answer with clear headers and bullet points. Always cite which source(s) you're referencing.")
	return sb.String()
}

// AssembleContext renders ranked chunks and record context as one block.
// Each chunk is cut to 1000 characters, and the whole block is trimmed to
// the budget when one is given.
func AssembleContext(chunks []models.RetrievedContext, recordContext string, budget *Budget) string {
	var parts []string
	if len(chunks) > 0 {
		parts = append(parts, "### RESEARCH REPORT CONTEXT:")
		for i, c := range chunks {
			parts = append(parts, fmt.Sprintf("\n[Source %d] %s:\n%s", i+1, c.Source, truncate(c.Content, chunkPreviewChars)))
		}
	}
	if recordContext != "" {
		parts = append(parts, "\n"+recordContext)
	}
	if len(parts) == 0 {
		return noContextMessage
	}

	if budget == nil {
		return strings.Join(parts, "\n\n")
	}
	// Parts are kept in order; the first one to overflow is cut to fit.
	var kept []string
	used := 0
	for _, p := range parts {
		cost := budget.Count(p)
		if used+cost > budget.Max() {
			if rest := budget.Max() - used; rest > 0 {
				kept = append(kept, budget.Truncate(p, rest))
			}
			break
		}
		kept = append(kept, p)
		used += cost
	}
	return strings.Join(kept, "\n\n")
}

// LimitedAnswer builds the answer given when no generator is available: the
// top chunks as previews plus the record context, or suggestions when
// nothing was retrieved.
func LimitedAnswer(chunks []models.RetrievedContext, recordContext string) string {
	parts := []string{"I'm operating in limited mode, but here's what I found:\n"}

	if len(chunks) > 0 {
		parts = append(parts, fmt.Sprintf("\n**Top relevant sections from %d report chunks:**\n", len(chunks)))
		for i, c := range chunks {
			if i == fallbackChunks {
				break
			}
			preview := strings.TrimSpace(strings.ReplaceAll(truncate(c.Content, fallbackPreviewChars), "\n", " "))
			if len([]rune(c.Content)) > fallbackPreviewChars {
				preview += "..."
			}
			parts = append(parts, fmt.Sprintf("\n%d. **%s**", i+1, c.Source), "   "+preview)
		}
	}

	if recordContext != "" {
		parts = append(parts, "\n\n"+recordContext)
	}

	if len(chunks) == 0 && recordContext == "" {
		parts = append(parts,
			"\nI couldn't find specific information. Try rephrasing your question or asking about:",
			"- Specific job roles (e.g., 'Process Engineer', 'Plant Manager')",
			"- Skills (e.g., 'CCS', 'process safety', 'project management')",
			"- Companies (e.g., 'Methanex', 'Proman', 'compensation comparison')",
		)
	}

	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
