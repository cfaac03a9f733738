package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/docket/internal/model"
)

const sample = `[
  {"caseTitle": "Case1", "majorityJustices": ["Roberts", "Thomas"], "concurringJustices": ["Barrett"],
   "dissentingJustices": ["Kagan"], "justicesFor": ["Roberts", "Thomas"], "votesFor": 3, "votesAgainst": 1},
  {"caseTitle": "Case2", "majorityJustices": "Roberts", "dissentingJustices": [], "votesFor": "9"},
  "not a record",
  {"caseTitle": "Case3", "justicesFor": ["Alito"], "dissentingJustices": ["Jackson"]},
  null
]`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scData.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDecode_Lenient(t *testing.T) {
	records, malformed, err := Decode([]byte(sample))
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, 2, malformed)

	assert.Equal(t, model.Bloc{"Roberts", "Thomas", "Barrett"}, records[0].VotingFor)

	// Wrong-shaped fields are absent, the record itself survives
	assert.Equal(t, "Case2", records[1].CaseTitle)
	assert.False(t, records[1].MajorityJustices.Present())
	assert.Nil(t, records[1].VotesFor)
	assert.True(t, records[1].DissentingJustices.Present())

	assert.Equal(t, model.CaseRecord{}, records[2])

	// No majority bloc: VotingFor falls back to the stored field
	assert.Equal(t, model.Bloc{"Alito"}, records[3].VotingFor)
}

func TestDecode_NotArray(t *testing.T) {
	for _, in := range []string{`{"caseTitle":"A"}`, ``, `  "x" `, `42`} {
		_, _, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrNotArray, "input %q", in)
	}
}

func TestDecode_Unparsable(t *testing.T) {
	_, _, err := Decode([]byte(`[{"caseTitle": "A"`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotArray)
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeTemp(t, sample)

	snap, err := NewLoader(nil, 1<<20, nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, snap.Source)
	assert.Equal(t, 5, snap.Stats.Records)
	assert.Equal(t, 2, snap.Stats.Malformed)
	assert.False(t, snap.Stats.Remote)
	assert.Equal(t, int64(len(sample)), snap.Stats.Bytes)
}

func TestLoader_LoadFailures(t *testing.T) {
	loader := NewLoader(nil, 16, nil)

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = loader.Load(context.Background(), writeTemp(t, sample))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = loader.Load(context.Background(), writeTemp(t, `{}`))
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = loader.Load(context.Background(), "https://example.com/scData.json")
	assert.Error(t, err, "remote source without a fetcher")
}

func TestLoader_LoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, sample)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	snap, err := NewLoader(fetcher, 1<<20, nil).Load(context.Background(), server.URL+"/data/scData.json")
	require.NoError(t, err)
	assert.True(t, snap.Stats.Remote)
	assert.Equal(t, 5, snap.Stats.Records)
}

func TestLoader_LoadRemoteStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, "", "", "")
	_, err := NewLoader(fetcher, 1<<20, nil).Load(context.Background(), server.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
}

func TestName(t *testing.T) {
	tests := map[string]string{
		"data/scData.json":                          "scData",
		"/tmp/term-2023.json":                       "term-2023",
		"https://example.com/terms/2024/scData.json": "scData",
		"https://example.com/":                      "example.com",
		"noext":                                     "noext",
	}
	for in, want := range tests {
		assert.Equal(t, want, Name(in), "Name(%q)", in)
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.json"))
	assert.True(t, IsRemote("http://example.com/a.json"))
	assert.False(t, IsRemote("data/scData.json"))
	assert.False(t, IsRemote("ftp://example.com/a.json"))
}
