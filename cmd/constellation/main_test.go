package main

import (
	"bytes"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatcheese98/career-constellation/internal/constellation"
	"github.com/goatcheese98/career-constellation/pkg/client"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

// execute runs the root command with args after restoring every flag to its
// default, and returns the combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func readExport(t *testing.T, r io.Reader) export {
	t.Helper()
	var e export
	require.NoError(t, json.NewDecoder(r).Decode(&e))
	return e
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "duplicates", "ask", "status", "rebuild"} {
		assert.True(t, names[want], want)
	}
}

func TestBuildCmd_Flags(t *testing.T) {
	flag := buildCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "constellation.json", flag.DefValue)
	assert.Equal(t, compressNone, buildCmd.Flags().Lookup("compress").DefValue)
}

func TestBuildCmd_Compression(t *testing.T) {
	tests := []struct {
		name     string
		compress string
		open     func(t *testing.T, f *os.File) io.Reader
	}{
		{"plain", compressNone, func(_ *testing.T, f *os.File) io.Reader { return f }},
		{"gzip", compressGzip, func(t *testing.T, f *os.File) io.Reader {
			r, err := gzip.NewReader(f)
			require.NoError(t, err)
			return r
		}},
		{"zstd", compressZstd, func(t *testing.T, f *os.File) io.Reader {
			r, err := zstd.NewReader(f)
			require.NoError(t, err)
			t.Cleanup(r.Close)
			return r
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "export.json")
			stdout, err := execute(t, "build", "--sample", "--embedding", "tfidf", "--out", out, "--compress", tt.compress)
			require.NoError(t, err)
			assert.Contains(t, stdout, "Wrote "+out)

			f, err := os.Open(out)
			require.NoError(t, err)
			defer f.Close()

			e := readExport(t, tt.open(t, f))
			assert.Equal(t, "sample", e.Source)
			assert.Equal(t, "tfidf", e.Strategy)
			assert.Equal(t, len(e.Jobs), e.Stats.TotalJobs)
			assert.Len(t, e.Clusters, e.Stats.NumClusters)
			assert.NotEmpty(t, e.Generation)
		})
	}
}

func TestBuildCmd_Stdout(t *testing.T) {
	stdout, err := execute(t, "build", "--sample", "--embedding", "tfidf", "--out", "-")
	require.NoError(t, err)
	e := readExport(t, strings.NewReader(stdout))
	assert.NotEmpty(t, e.Jobs)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteExport_ReportsWriterErrors(t *testing.T) {
	e := export{Generation: "g1", Jobs: []models.Job{{Title: "Buyer"}}}
	for _, format := range []string{compressNone, compressGzip, compressZstd} {
		t.Run(format, func(t *testing.T) {
			assert.ErrorContains(t, writeExport(failingWriter{}, format, e), "disk full")
		})
	}
}

func TestWriteExport_ClosesCompressorWhenEncodeFails(t *testing.T) {
	e := export{Generation: "g1", ClusterSimilarity: map[string]float64{"0-1": math.NaN()}}

	var buf bytes.Buffer
	err := writeExport(&buf, compressGzip, e)
	require.ErrorContains(t, err, "encode export")

	// A closed gzip writer leaves a complete, empty stream behind.
	r, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestWriteExportFile(t *testing.T) {
	e := export{Generation: "g1", Jobs: []models.Job{{Title: "Buyer"}}}

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, writeExportFile(path, compressNone, e))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "g1", readExport(t, f).Generation)

	err = writeExportFile(filepath.Join(t.TempDir(), "missing", "export.json"), compressNone, e)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildCmd_UnknownCompression(t *testing.T) {
	_, err := execute(t, "build", "--sample", "--compress", "lz4")
	assert.ErrorContains(t, err, "unknown compression")
}

func TestBuildCmd_MissingTable(t *testing.T) {
	_, err := execute(t, "build", "--embedding", "tfidf", "--data", filepath.Join(t.TempDir(), "none.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildCmd_FromCSV(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "jobs.csv")
	var sb strings.Builder
	sb.WriteString("job_title,position_summary\n")
	for _, title := range []string{"Process Engineer", "Senior Process Engineer", "Accountant", "Senior Accountant", "HR Advisor", "HR Manager"} {
		sb.WriteString(title + ",\"" + strings.Repeat(strings.ToLower(title)+" duties and daily responsibilities ", 3) + "\"\n")
	}
	require.NoError(t, os.WriteFile(table, []byte(sb.String()), 0600))

	stdout, err := execute(t, "build", "--embedding", "tfidf", "--data", table, "--out", "-")
	require.NoError(t, err)
	e := readExport(t, strings.NewReader(stdout))
	assert.Equal(t, table, e.Source)
	assert.Len(t, e.Jobs, 6)
}

func TestDuplicatesCmd_JSON(t *testing.T) {
	stdout, err := execute(t, "duplicates", "--sample", "--embedding", "tfidf", "--threshold", "0.8", "--limit", "0", "--json")
	require.NoError(t, err)

	var pairs []models.DuplicatePair
	require.NoError(t, json.Unmarshal([]byte(stdout), &pairs))
	for i, p := range pairs {
		assert.Greater(t, p.Similarity, 0.8)
		assert.NotEqual(t, strings.ToLower(p.TitleA), strings.ToLower(p.TitleB))
		if i > 0 {
			assert.GreaterOrEqual(t, pairs[i-1].Similarity, p.Similarity)
		}
	}
}

func TestDuplicatesCmd_Table(t *testing.T) {
	stdout, err := execute(t, "duplicates", "--sample", "--embedding", "tfidf", "--threshold", "0.99")
	require.NoError(t, err)
	assert.True(t, strings.Contains(stdout, "near-duplicate pairs"), stdout)
}

func TestDuplicatesCmd_BadThreshold(t *testing.T) {
	_, err := execute(t, "duplicates", "--sample", "--threshold", "1.5")
	assert.ErrorContains(t, err, "threshold")
}

func TestDuplicatesCmd_BelowScanFloor(t *testing.T) {
	_, err := execute(t, "duplicates", "--sample", "--embedding", "tfidf", "--threshold", "0.3")
	assert.ErrorIs(t, err, constellation.ErrBelowScanFloor)
}

func TestDuplicatesCmd_UnknownCluster(t *testing.T) {
	_, err := execute(t, "duplicates", "--sample", "--embedding", "tfidf", "--cluster", "99")
	assert.Error(t, err)
}

func writeReports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "safety_report.md"),
		[]byte("# Safety\n## Audits\nsafety audits rose after the compliance programme"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pay_report.md"),
		[]byte("# Pay\n## Bands\nsalary bands widened for engineers"), 0600))
	return dir
}

func TestAskCmd_PrintsChunks(t *testing.T) {
	dir := writeReports(t)
	stdout, err := execute(t, "ask", "--reports", dir, "--report", "safety", "How did safety audits change?")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Action:")
	assert.Contains(t, stdout, "safety_report.md")
}

func TestAskCmd_JSONWithRecords(t *testing.T) {
	dir := writeReports(t)
	stdout, err := execute(t, "ask", "--reports", dir, "--sample", "--embedding", "tfidf", "--records", "--json", "Which jobs mention accountant?")
	require.NoError(t, err)

	var rc struct {
		Chunks        []models.RetrievedContext `json:"chunks"`
		RecordContext string                    `json:"record_context"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &rc))
	assert.NotNil(t, rc.Chunks)
}

func TestAskCmd_LimitedAnswer(t *testing.T) {
	t.Setenv("CONSTELLATION_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	dir := writeReports(t)
	stdout, err := execute(t, "ask", "--reports", dir, "--answer", "safety audits")
	require.NoError(t, err)
	assert.Contains(t, stdout, "limited mode")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("  one\ntwo"))
	long := strings.Repeat("a", 130)
	assert.Equal(t, strings.Repeat("a", 120)+"...", firstLine(long))
}

func fakeServer(t *testing.T, ready bool, rebuildStatus int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			status := "starting"
			if ready {
				status = "ready"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "version": Version, "generation": "0123456789abcdef"})
		case "/api/stats":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"total_jobs": 12, "num_clusters": 3, "standardization_pairs": 4,
				"embedding_strategy": "tfidf", "dropped_records": 2,
			})
		case "/api/rebuild":
			w.WriteHeader(rebuildStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestStatusCmd_Ready(t *testing.T) {
	server := fakeServer(t, true, http.StatusAccepted)
	stdout, err := execute(t, "status", "--addr", server.URL, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[constellation] ● jobs:12 | clusters:3 | duplicates:4 | tfidf | dropped:2 | gen:01234567")
	assert.NotContains(t, stdout, "warning")
}

func TestStatusCmd_Starting(t *testing.T) {
	server := fakeServer(t, false, http.StatusAccepted)
	stdout, err := execute(t, "status", "--addr", strings.TrimPrefix(server.URL, "http://"), "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "building...")
}

func TestStatusCmd_Offline(t *testing.T) {
	stdout, err := execute(t, "status", "--addr", "127.0.0.1:1", "--no-color", "--timeout", "500ms")
	require.Error(t, err)
	assert.Contains(t, stdout, "offline")
}

func TestRebuildCmd(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
		err    bool
	}{
		{"queued", http.StatusAccepted, "Rebuild queued.", false},
		{"already queued", http.StatusConflict, "already queued", false},
		{"failure", http.StatusInternalServerError, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := fakeServer(t, true, tt.status)
			stdout, err := execute(t, "rebuild", "--addr", server.URL)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestFormatStatus_Colors(t *testing.T) {
	h := &client.Health{Status: "ready", Generation: "abc"}
	s := &client.Stats{TotalJobs: 1, NumClusters: 1, EmbeddingStrategy: "http", Degraded: true}
	colored := formatStatus(h, s, true)
	assert.Contains(t, colored, colorCyan+"[constellation]"+colorReset)
	assert.Contains(t, colored, colorYellow+"degraded"+colorReset)
	assert.Equal(t, "[constellation] ● jobs:1 | clusters:1 | duplicates:0 | http | degraded | gen:abc", formatStatus(h, s, false))
}
