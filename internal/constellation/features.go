package constellation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/goatcheese98/career-constellation/internal/tfidf"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	// KeywordsPerJob is the number of keywords kept for each job.
	KeywordsPerJob = 5
	// MaxSkillsPerJob caps the skills attached to a job.
	MaxSkillsPerJob = 10
)

// Keywords returns the top n uni- and bigrams of a single document ranked
// by tf-idf weight.
func Keywords(text string, n int) []string {
	vec := tfidf.New(tfidf.Options{
		NGramMin:    1,
		NGramMax:    2,
		MaxFeatures: 100,
		MinDF:       1,
		StopWords:   true,
	})
	rows, err := vec.FitTransform([]string{text})
	if err != nil {
		return []string{}
	}
	return vec.TopTerms(rows[0], n)
}

type skill struct {
	name     string
	patterns []*regexp.Regexp
}

func newSkill(name string, patterns ...string) skill {
	s := skill{name: name}
	for _, p := range patterns {
		s.patterns = append(s.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return s
}

var skillLexicon = []skill{
	newSkill("SQL", `\bsql\b`, `\bpostgres\b`, `\bmysql\b`, `\bsnowflake\b`, `\bbigquery\b`),
	newSkill("Python", `\bpython\b`, `\bpandas\b`, `\bnumpy\b`),
	newSkill("Excel", `\bexcel\b`, `\bpivot table\b`, `\bvlookup\b`),
	newSkill("Oracle/ERP", `\boracle\b`, `\berp\b`, `\bebs\b`, `\bpeople soft\b`, `\bsap\b`),
	newSkill("Engineering/Maintenance", `\b(cmms|work orders?|preventive maintenance|reliability|root cause|rca)\b`),
	newSkill("Safety/EHS", `\b(ehs|hse)\b`, `\bsafety\b`, `\bloto\b`, `\bosha\b`),
	newSkill("Supply Chain", `\bsupply chain\b`, `\bmrp\b`, `\bprocurement\b`),
	newSkill("Audit/SOX", `\bsox\b`, `\bsarbanes[- ]oxley\b`, `\binternal audit\b`),
	newSkill("Tax/Transfer Pricing", `\btransfer pricing\b`, `\btaxation\b`),
	newSkill("HR/Payroll", `\bpayroll\b`, `\bhr\b`, `\bcompensation\b`, `\bbenefits\b`),
	newSkill("ESG/Sustainability", `\besg\b`, `\bsustainability\b`, `\bcarbon\b`),
	newSkill("Finance/Reporting", `\bfinancial reporting\b`, `\bifrs\b`, `\bgaap\b`),
	newSkill("Legal/Contracts", `\blegal counsel\b`, `\bnda\b`, `\bcontract\b`),
}

// SkillNames lists the lexicon categories in match order.
func SkillNames() []string {
	out := make([]string, len(skillLexicon))
	for i, s := range skillLexicon {
		out[i] = s.name
	}
	return out
}

// Skills returns the lexicon categories mentioned in text.
func Skills(text string) []string {
	out := []string{}
	for _, s := range skillLexicon {
		for _, re := range s.patterns {
			if re.MatchString(text) {
				out = append(out, s.name)
				break
			}
		}
		if len(out) == MaxSkillsPerJob {
			break
		}
	}
	return out
}

// TopCounts tallies items and returns the n most frequent. Equal counts keep
// first-seen order. n < 0 returns all.
func TopCounts(items []string, n int) []models.Counted {
	index := make(map[string]int)
	out := []models.Counted{}
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if i, ok := index[it]; ok {
			out[i].Count++
			continue
		}
		index[it] = len(out)
		out = append(out, models.Counted{Name: it, Count: 1})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// names extracts the labels of counted items.
func names(counts []models.Counted) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Name
	}
	return out
}
