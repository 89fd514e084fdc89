package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/goatcheese98/career-constellation/internal/chunking"
	"github.com/goatcheese98/career-constellation/internal/collections"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/internal/embedding"
)

// ManagerSuite is a test suite for search Manager operations.
type ManagerSuite struct {
	suite.Suite
	dir string
	m   *Manager
	ds  *constellation.Dataset
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupSuite() {
	pipeline := constellation.NewPipeline(constellation.DefaultConfig(), embedding.NewService(nil, nil))
	ds, err := pipeline.Run(context.Background(), "sample", constellation.SampleRecords(), nil)
	s.Require().NoError(err)
	s.ds = ds
}

func (s *ManagerSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.write("safety_report.md", "---\ntitle: \"Safety Outlook\"\n---\n## Incidents\nsafety incidents fell\n## Audits\nsafety audits rose")
	s.write("pay_report.md", "# Pay\n## Bands\nsalary bands widened")

	catalogPath := filepath.Join(s.dir, "collections.yml")
	s.Require().NoError(os.WriteFile(catalogPath, []byte(`
collections:
  - name: hse
    report_context:
      "safety": "Health and safety research."
`), 0600))
	catalog, err := collections.Load(catalogPath)
	s.Require().NoError(err)

	s.m = NewManager(chunking.NewDefaultManager(chunking.DefaultChunkOptions()), catalog, s.dir)
}

func (s *ManagerSuite) write(name, body string) {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, name), []byte(body), 0600))
}

func (s *ManagerSuite) TestEmptyBeforeLoad() {
	s.Empty(s.m.Reports())
	s.Empty(s.m.Retrieve("safety", "", 7))
}

func (s *ManagerSuite) TestLoadReports() {
	s.Require().NoError(s.m.LoadReports(context.Background()))

	reports := s.m.Reports()
	s.Require().Len(reports, 2)
	s.Equal("pay_report.md", reports[0].ID)
	s.Equal("Pay", reports[0].Title)
	s.Empty(reports[0].Collections)
	s.Equal("safety_report.md", reports[1].ID)
	s.Equal("Safety Outlook", reports[1].Title)
	s.Equal(2, reports[1].Chunks)
	s.Equal([]string{"hse"}, reports[1].Collections)

	r, ok := s.m.Report("safety_report")
	s.Require().True(ok)
	s.Len(r.Sections, 2)
	s.Equal("## Audits", r.Sections[1].Header)

	_, ok = s.m.Report("missing")
	s.False(ok)
}

func (s *ManagerSuite) TestReloadSwapsIndex() {
	s.Require().NoError(s.m.LoadReports(context.Background()))
	before := s.m.Index()

	s.write("market_report.md", "## Market\nmethanol demand grew")
	s.Require().NoError(s.m.LoadReports(context.Background()))

	s.NotSame(before, s.m.Index())
	s.Len(s.m.Reports(), 3)
	s.NotEmpty(s.m.Retrieve("methanol demand", "", 7))
}

func (s *ManagerSuite) TestReportContext() {
	s.Require().NoError(s.m.LoadReports(context.Background()))
	s.Equal("Health and safety research.", s.m.ReportContext("safety_report"))
	s.Equal("", s.m.ReportContext("pay_report.md"))
	s.Equal("", s.m.ReportContext(""))
}

func (s *ManagerSuite) TestSearchJobs() {
	hits := s.m.SearchJobs(s.ds, "accountant", 10)
	s.Require().Len(hits, 1)
	s.Equal("Senior Accountant", hits[0].Job.Title)
	s.NotEmpty(hits[0].ClusterLabel)
	s.Greater(hits[0].Score, 0.0)

	s.Empty(s.m.SearchJobs(s.ds, "  ", 10))
	s.Empty(s.m.SearchJobs(nil, "accountant", 10))
	s.LessOrEqual(len(s.m.SearchJobs(s.ds, "manager", 2)), 2)
}

func (s *ManagerSuite) TestJobIndexCachedPerGeneration() {
	first := s.m.jobIndexFor(s.ds)
	s.Same(first, s.m.jobIndexFor(s.ds))

	next := *s.ds
	next.ID = "other-generation"
	s.NotSame(first, s.m.jobIndexFor(&next))
}
