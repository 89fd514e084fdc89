// Package chat assembles retrieval context for career questions and hands it
// to a text generator. Without a generator it answers in limited mode from the
// retrieved context alone.
package chat

import "strings"

// Action is the kind of answer a question asks for.
type Action string

const (
	ActionSummarize        Action = "summarize"
	ActionCompare          Action = "compare"
	ActionCareerPath       Action = "career_path"
	ActionCompensation     Action = "compensation"
	ActionSkills           Action = "skills"
	ActionJobSearch        Action = "job_search"
	ActionCompetitiveIntel Action = "competitive_intel"
	ActionGeneral          Action = "general"
)

// actionRules are checked in order; the first rule with a matching keyword wins.
var actionRules = []struct {
	action Action
	words  []string
}{
	{ActionSummarize, []string{"summarize", "summary", "overview", "key points", "main points"}},
	{ActionCompare, []string{"compare", "difference", "vs", "versus", "better", "worse"}},
	{ActionCareerPath, []string{"career path", "progression", "promotion", "advance", "next step", "grow"}},
	{ActionCompensation, []string{"salary", "compensation", "pay", "earn", "wage", "bonus"}},
	{ActionSkills, []string{"skill", "learn", "training", "certification", "course", "develop"}},
	{ActionJobSearch, []string{"job", "role", "position", "title", "apply", "hiring"}},
	{ActionCompetitiveIntel, []string{"company", "competitor", "methanex", "proman", "industry"}},
}

var actionInstructions = map[Action]string{
	ActionSummarize:        "Provide a concise summary of the key points from the retrieved context. Use bullet points for clarity.",
	ActionCompare:          "Present a balanced comparison using the data. Create a comparison table if appropriate.",
	ActionCareerPath:       "Outline clear career progression steps with timelines, required skills, and potential roadblocks.",
	ActionCompensation:     "Present salary ranges, factors affecting pay, and negotiation tips based on the data.",
	ActionSkills:           "List specific skills to develop, prioritize them, and suggest learning resources or certifications.",
	ActionJobSearch:        "Match relevant job postings to the query and explain why they fit.",
	ActionCompetitiveIntel: "Analyze the competitive landscape and provide strategic insights about companies mentioned.",
	ActionGeneral:          "Provide a comprehensive answer that connects the retrieved information to the user's question.",
}

// dataQueryWords mark questions about counts, distributions or patterns.
var dataQueryWords = []string{
	"analyze", "count", "how many", "percentage", "statistics", "distribution",
	"top", "most common", "cluster", "trend", "pattern", "compare", "average",
}

// ClassifyAction picks the action for a message by case-insensitive keyword
// containment.
func ClassifyAction(message string) Action {
	m := strings.ToLower(message)
	for _, rule := range actionRules {
		if containsAny(m, rule.words) {
			return rule.action
		}
	}
	return ActionGeneral
}

// Instruction returns the answer-shaping instruction for a.
func (a Action) Instruction() string {
	if s, ok := actionInstructions[a]; ok {
		return s
	}
	return actionInstructions[ActionGeneral]
}

// IsDataQuery reports whether message asks for dataset statistics.
func IsDataQuery(message string) bool {
	return containsAny(strings.ToLower(message), dataQueryWords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
