// Package textnorm builds the text blobs that represent a job description.
package textnorm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

// DefaultMinTextLength is the character floor below which records are dropped.
const DefaultMinTextLength = 50

var (
	locationTokens = []string{
		"ab", "usa", "canada", "alberta", "calgary", "edmonton",
		"vancouver", "toronto", "medicine hat", "texas", "hong kong",
	}

	locationRegex *regexp.Regexp

	// datePrefixRegexes match leading "YYMMDD " and "YYYY N-" stamps.
	datePrefixRegexes = []*regexp.Regexp{
		regexp.MustCompile(`^\d{6}\s+`),
		regexp.MustCompile(`^\d{4}\s+\d{1,2}[ _\-]+`),
	}

	postingRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\binternal job posting\b`),
		regexp.MustCompile(`(?i)\bjob posting\b`),
		regexp.MustCompile(`(?i)\bposting\b`),
		regexp.MustCompile(`(?i)\bjob advertisement\b`),
		regexp.MustCompile(`(?i)\bAD\b`),
		regexp.MustCompile(`(?i)\bJD\b`),
		regexp.MustCompile(`(?i)\btemp\b|\btemporary\b`),
		regexp.MustCompile(`(?i)\bcontract\b|\bterm\b|\bsecondment\b`),
		regexp.MustCompile(`(?i)\(?\s*~?\s*\d+\s*(?:-\s*\d+)?\s*[- ]?\s*months?\s*\)?`),
		regexp.MustCompile(`(?i)\(?\s*\d+\s*(?:-\s*\d+)?\s*[- ]?\s*years?\s*\)?`),
		regexp.MustCompile(`(?i)\bassignment\b`),
	}

	docxRegex     = regexp.MustCompile(`(?i)\.?docx\b`)
	digitsRegex   = regexp.MustCompile(`\d+`)
	bracketsRegex = regexp.MustCompile(`[()~]`)
	dashRegex     = regexp.MustCompile(`\s*-\s*`)
	spaceRegex    = regexp.MustCompile(`\s+`)
)

func init() {
	// Longest first so "medicine hat" wins over shorter overlaps.
	tokens := append([]string(nil), locationTokens...)
	sort.SliceStable(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	locationRegex = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// StripLocations removes location tokens and collapses whitespace.
func StripLocations(text string) string {
	text = locationRegex.ReplaceAllString(text, " ")
	return collapse(text)
}

// StripNoise removes location tokens and file-extension residue from body text.
func StripNoise(text string) string {
	text = docxRegex.ReplaceAllString(text, " ")
	return StripLocations(text)
}

// CleanTitle removes date stamps, posting boilerplate, durations, digits and
// locations from a title. The original title is returned if nothing is left.
func CleanTitle(title string) string {
	t := strings.TrimSpace(title)
	t = docxRegex.ReplaceAllString(t, "")
	for _, re := range datePrefixRegexes {
		t = re.ReplaceAllString(t, "")
	}
	t = strings.NewReplacer("_", " ", "–", "-", "—", "-").Replace(t)
	for _, re := range postingRegexes {
		t = re.ReplaceAllString(t, " ")
	}
	t = digitsRegex.ReplaceAllString(t, "")
	t = bracketsRegex.ReplaceAllString(t, " ")
	t = dashRegex.ReplaceAllString(t, " ")
	t = StripLocations(t)
	if t == "" {
		return strings.TrimSpace(title)
	}
	return t
}

// Composite builds the labeled embedding text with the title repeated.
func Composite(r models.RawRecord) string {
	return fmt.Sprintf("Title: %s. Title: %s. Summary: %s. Responsibilities: %s. Qualifications: %s.",
		r.Title, r.Title, r.Summary, r.Responsibilities, r.Qualifications)
}

// FullText joins the non-empty raw fields with single spaces.
func FullText(r models.RawRecord) string {
	parts := make([]string, 0, 4)
	for _, f := range []string{r.Title, r.Summary, r.Responsibilities, r.Qualifications} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// floorLength is the length of the four fields joined by single spaces with
// empty fields kept, so a lone title carries three separators.
func floorLength(r models.RawRecord) int {
	return utf8.RuneCountInString(r.Title) + utf8.RuneCountInString(r.Summary) +
		utf8.RuneCountInString(r.Responsibilities) + utf8.RuneCountInString(r.Qualifications) + 3
}

// Options tunes Normalize.
type Options struct {
	MinTextLength int
	StripNoise    bool
}

// DefaultOptions returns the standard floor with noise stripping on.
func DefaultOptions() Options {
	return Options{MinTextLength: DefaultMinTextLength, StripNoise: true}
}

// Record is a record that passed the length floor.
type Record struct {
	Raw models.RawRecord
	// FullText is the plain joined text used for keywords, skills and sizing.
	FullText string
	// EmbedText is the labeled composite handed to the embedding provider.
	EmbedText string
	// Source is the row index in the input table.
	Source int
}

// Result is the normalized table.
type Result struct {
	Records []Record
	Dropped int
}

// Normalize trims every field, builds the texts and drops records whose
// four fields joined with separators are at most MinTextLength characters
// long.
func Normalize(raws []models.RawRecord, opts Options) Result {
	res := Result{Records: make([]Record, 0, len(raws))}
	for i, raw := range raws {
		raw = trimRecord(raw)
		if floorLength(raw) <= opts.MinTextLength {
			res.Dropped++
			continue
		}
		full := FullText(raw)

		embedSrc := raw
		if opts.StripNoise {
			embedSrc.Title = CleanTitle(raw.Title)
			embedSrc.Summary = StripNoise(raw.Summary)
			embedSrc.Responsibilities = StripNoise(raw.Responsibilities)
			embedSrc.Qualifications = StripNoise(raw.Qualifications)
		}

		res.Records = append(res.Records, Record{
			Raw:       raw,
			FullText:  full,
			EmbedText: Composite(embedSrc),
			Source:    i,
		})
	}
	return res
}

func trimRecord(r models.RawRecord) models.RawRecord {
	r.Title = strings.TrimSpace(r.Title)
	r.Summary = strings.TrimSpace(r.Summary)
	r.Responsibilities = strings.TrimSpace(r.Responsibilities)
	r.Qualifications = strings.TrimSpace(r.Qualifications)
	r.Level = strings.TrimSpace(r.Level)
	r.Scope = strings.TrimSpace(r.Scope)
	return r
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}
