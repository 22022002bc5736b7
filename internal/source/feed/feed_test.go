package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Board</title>
  <item>
    <title>Acme Corp: Senior Engineer</title>
    <link>https://Example.com/jobs/1?utm_source=rss&amp;ref=7</link>
    <guid>job-1</guid>
    <description>&lt;p&gt;Great role. Apply at https://example.com/apply&lt;/p&gt;</description>
    <pubDate>Mon, 24 Aug 2026 10:00:00 +0000</pubDate>
    <category>Programming</category>
    <enclosure url="https://example.com/img/1.png" type="image/png"/>
  </item>
  <item>
    <title>   </title>
    <link>https://example.com/jobs/2</link>
    <guid>job-2</guid>
  </item>
</channel>
</rss>`

const rdfFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns="http://purl.org/rss/1.0/"
         xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://example.com/feed">
    <title>Board</title>
    <items><rdf:Seq><rdf:li rdf:resource="https://example.com/jobs/5"/></rdf:Seq></items>
  </channel>
  <item rdf:about="https://example.com/jobs/5">
    <title>Acme Corp: Welder</title>
    <link>https://example.com/jobs/5</link>
    <description>Join the workshop.</description>
    <dc:date>2026-08-22T08:30:00Z</dc:date>
  </item>
  <item rdf:about="https://example.com/jobs/6">
    <title>Acme Corp: Fitter</title>
    <link>https://example.com/jobs/6</link>
    <dc:date>2026-08-23T08:30:00Z</dc:date>
  </item>
</rdf:RDF>`

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Board</title>
  <entry>
    <id>tag:board.example,2026:42</id>
    <title>Data Analyst</title>
    <link rel="self" href="https://example.com/feed.xml"/>
    <link rel="alternate" href="https://example.com/jobs/42"/>
    <summary>Crunch the numbers.</summary>
    <published>2026-08-20T09:00:00Z</published>
    <category term="Analytics"/>
  </entry>
</feed>`

func serveFixture(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRSS(t *testing.T) {
	srv := serveFixture(t, rssFixture)

	f := New(config.FeedSource{Name: "board", URL: srv.URL}, nil)
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1, "the titleless item is dropped")

	p := got[0]
	assert.Equal(t, "board:job-1", p.SourceLocalID)
	assert.Equal(t, "Senior Engineer", p.Title)
	assert.Equal(t, "Acme Corp", p.Employer)
	assert.Equal(t, "https://example.com/jobs/1?ref=7", p.CanonicalURL, "tracking params dropped")
	assert.Equal(t, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), p.PublishedAt.UTC())
	assert.Equal(t, "https://example.com/img/1.png", p.ImageURL)
	assert.Equal(t, []string{"Programming"}, p.Categories)
	assert.Equal(t, "board", p.SourceName)
	assert.Contains(t, p.RawBody, "Great role.")
}

func TestFetchRSSIDFromLink(t *testing.T) {
	srv := serveFixture(t, rssFixture)

	f := New(config.FeedSource{Name: "board", URL: srv.URL, IDFrom: "link"}, nil)
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "board:https://example.com/jobs/1?ref=7", got[0].SourceLocalID)
}

func TestFetchRDF(t *testing.T) {
	srv := serveFixture(t, rdfFixture)

	f := New(config.FeedSource{Name: "board", URL: srv.URL}, nil)
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2, "RDF items sit next to <channel>, not inside it")

	p := got[0]
	assert.Equal(t, "board:https://example.com/jobs/5", p.SourceLocalID, "no guid, id falls back to the link")
	assert.Equal(t, "Welder", p.Title)
	assert.Equal(t, "Acme Corp", p.Employer)
	assert.Equal(t, time.Date(2026, 8, 22, 8, 30, 0, 0, time.UTC), p.PublishedAt.UTC(), "dc:date carries the timestamp")
	assert.Equal(t, "Join the workshop.", p.RawBody)

	assert.Equal(t, "Fitter", got[1].Title)
}

func TestFetchAtom(t *testing.T) {
	srv := serveFixture(t, atomFixture)

	f := New(config.FeedSource{Name: "board", URL: srv.URL, Employer: "Board Inc"}, nil)
	got, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, "board:tag:board.example,2026:42", p.SourceLocalID)
	assert.Equal(t, "Data Analyst", p.Title, "fixed employer means the title is not split")
	assert.Equal(t, "Board Inc", p.Employer)
	assert.Equal(t, "https://example.com/jobs/42", p.CanonicalURL, "rel=alternate wins over rel=self")
	assert.Equal(t, "Crunch the numbers.", p.RawBody)
	assert.Equal(t, []string{"Analytics"}, p.Categories)
}

func TestFetchUnrecognizedRoot(t *testing.T) {
	srv := serveFixture(t, `<?xml version="1.0"?><html><body>not a feed</body></html>`)

	f := New(config.FeedSource{Name: "board", URL: srv.URL}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized feed root")
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(config.FeedSource{Name: "board", URL: srv.URL}, nil)
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestProcess(t *testing.T) {
	f := New(config.FeedSource{Name: "board"}, nil)

	raw := domain.RawPosting{
		SourceLocalID: "board:job-1",
		Title:         "Senior Engineer",
		Employer:      "Acme Corp",
		CanonicalURL:  "https://example.com/jobs/1",
		PublishedAt:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		RawBody:       "<p>Great role.</p><p>Write to hr@acme.test to apply.</p>",
		SourceName:    "board",
		Categories:    []string{"Programming", "Remote"},
	}

	ep, err := f.Process(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Senior Engineer", ep.Title)
	assert.Equal(t, "Acme Corp", ep.Employer)
	assert.Equal(t, "Great role.\nWrite to hr@acme.test to apply.", ep.BodyText)
	assert.Equal(t, []string{"hr@acme.test"}, ep.Contacts)
	assert.Equal(t, "2026-08-24", ep.PostedLabel)
	assert.Equal(t, "Programming", ep.Category, "first feed category carries over")
}

func TestProcessCustomProcessor(t *testing.T) {
	called := false
	f := New(config.FeedSource{Name: "board"}, nil).WithProcessor(
		func(_ context.Context, raw domain.RawPosting) (domain.EnrichedPosting, error) {
			called = true
			return domain.EnrichedPosting{Title: raw.Title + " (custom)"}, nil
		})

	ep, err := f.Process(context.Background(), domain.RawPosting{Title: "Nurse"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "Nurse (custom)", ep.Title)
}

func TestSplitEmployer(t *testing.T) {
	title, employer := splitEmployer("Acme Corp: Senior Engineer", "")
	assert.Equal(t, "Senior Engineer", title)
	assert.Equal(t, "Acme Corp", employer)

	title, employer = splitEmployer("Plain Title", "")
	assert.Equal(t, "Plain Title", title)
	assert.Equal(t, "", employer)

	title, employer = splitEmployer("Acme Corp: Senior Engineer", "Fixed Inc")
	assert.Equal(t, "Acme Corp: Senior Engineer", title)
	assert.Equal(t, "Fixed Inc", employer)
}

func TestParseFeedTime(t *testing.T) {
	assert.Equal(t,
		time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		parseFeedTime("Mon, 24 Aug 2026 10:00:00 +0000").UTC())
	assert.Equal(t,
		time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		parseFeedTime("2026-08-20T09:00:00Z").UTC())
	assert.True(t, parseFeedTime("not a date").IsZero())
	assert.True(t, parseFeedTime("").IsZero())
}
