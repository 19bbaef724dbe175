package pixiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// apiServer fakes the listing and detail endpoints together with the oauth
// exchange, so a Client can be exercised end to end against httptest.
type apiServer struct {
	*httptest.Server
	mux       *http.ServeMux
	refreshes int
}

func newAPIServer(t *testing.T) *apiServer {
	srv := &apiServer{mux: http.NewServeMux()}

	srv.mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		srv.refreshes++
		writeJSON(w, `{"access_token":"A%v","refresh_token":"R2","expires_in":3600,"user":{"id":"42"}}`, srv.refreshes)
	})

	srv.Server = httptest.NewServer(srv.mux)
	t.Cleanup(srv.Close)
	return srv
}

// serveDetails registers detail and body handlers answering for any novel id.
func (s *apiServer) serveDetails(t *testing.T) {
	s.mux.HandleFunc("/v2/novel/detail", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		id := r.URL.Query().Get("novel_id")
		writeJSON(w, `{"novel":{"id":%v,"title":"novel %v","user":{"id":9,"name":"writer"}}}`, id, id)
	})
	s.mux.HandleFunc("/ajax/novel/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ajax/novel/")
		writeJSON(w, `{"error":false,"message":"","body":{"content":"body of %v"}}`, id)
	})
}

func writeJSON(w http.ResponseWriter, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, format, args...)
}

func (s *apiServer) newClient(pageSize int) *Client {
	auth := NewAuthenticator(resty.New(), AuthOptions{
		RefreshToken: "R1",
		TokenURL:     s.URL + "/auth/token",
	}, zap.NewNop())
	return NewClient(resty.New(), auth, ClientOptions{
		APIBaseURL: s.URL,
		WebBaseURL: s.URL,
		PageSize:   pageSize,
	}, zap.NewNop())
}

func requireBearer(t *testing.T, r *http.Request) {
	require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer A"))
}

func writeNovelList(w http.ResponseWriter, srvURL string, more bool, ids ...int64) {
	novels := make([]string, len(ids))
	for i, id := range ids {
		novels[i] = fmt.Sprintf(`{"id":%v}`, id)
	}
	nextURL := ""
	if more {
		nextURL = srvURL + "/v1/user/novels?offset=next"
	}
	writeJSON(w, `{"novels":[%v],"next_url":"%v"}`, strings.Join(novels, ","), nextURL)
}

func TestFetchAuthorNovelsPaginatesAndDeduplicates(t *testing.T) {
	srv := newAPIServer(t)
	srv.serveDetails(t)

	// Two pages; id 2 straddles the page boundary and must come out once.
	srv.mux.HandleFunc("/v1/user/novels", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		require.Equal(t, "7", r.URL.Query().Get("user_id"))
		require.Equal(t, "2", r.URL.Query().Get("limit"))

		switch r.URL.Query().Get("offset") {
		case "0":
			writeNovelList(w, srv.URL, true, 1, 2)
		case "2":
			writeNovelList(w, srv.URL, false, 2, 3)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	iter := srv.newClient(2).FetchAuthorNovels(7)

	var got []int64
	for {
		record, err := iter.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, record.ID)
		require.Equal(t, fmt.Sprintf("novel %v", record.ID), record.Title)
		require.Equal(t, fmt.Sprintf("body of %v", record.ID), record.Body)
		require.Equal(t, "writer", record.Author.Name)
	}
	require.Equal(t, []int64{1, 2, 3}, got)

	// Exhausted sequences keep reporting EOF.
	_, err := iter.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestShortPageEndsSequence(t *testing.T) {
	srv := newAPIServer(t)
	srv.serveDetails(t)

	var calls int
	srv.mux.HandleFunc("/v1/user/novels", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeNovelList(w, srv.URL, true, 5)
	})

	iter := srv.newClient(2).FetchAuthorNovels(7)

	record, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), record.ID)

	// A page shorter than the page size ends the listing even with a
	// next_url present; no second listing request happens.
	_, err = iter.Next(context.Background())
	require.Equal(t, io.EOF, err)
	require.Equal(t, 1, calls)
}

func TestUnauthorizedRetriesOnceAfterInvalidation(t *testing.T) {
	srv := newAPIServer(t)

	var detailCalls int
	srv.mux.HandleFunc("/v2/novel/detail", func(w http.ResponseWriter, r *http.Request) {
		detailCalls++
		if detailCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "Bearer A2", r.Header.Get("Authorization"))
		writeJSON(w, `{"novel":{"id":1,"title":"retried","user":{"id":9,"name":"writer"}}}`)
	})
	srv.mux.HandleFunc("/ajax/novel/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"error":false,"message":"","body":{"content":"body"}}`)
	})

	iter := srv.newClient(2).FetchNovel(1)

	record, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "retried", record.Title)
	require.Equal(t, 2, detailCalls)
	require.Equal(t, 2, srv.refreshes)
}

func TestPersistentUnauthorizedIsRecordError(t *testing.T) {
	srv := newAPIServer(t)

	srv.mux.HandleFunc("/v2/novel/detail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	iter := srv.newClient(2).FetchNovel(1)

	_, err := iter.Next(context.Background())
	var recordErr *RecordError
	require.ErrorAs(t, err, &recordErr)
	require.Equal(t, int64(1), recordErr.NovelID)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestBodyErrorKeepsSequenceConsumable(t *testing.T) {
	srv := newAPIServer(t)

	srv.mux.HandleFunc("/v1/user/novels", func(w http.ResponseWriter, r *http.Request) {
		writeNovelList(w, srv.URL, false, 1, 2)
	})
	srv.mux.HandleFunc("/v2/novel/detail", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("novel_id")
		writeJSON(w, `{"novel":{"id":%v,"title":"novel %v","user":{"id":9,"name":"writer"}}}`, id, id)
	})
	srv.mux.HandleFunc("/ajax/novel/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ajax/novel/")
		if id == "1" {
			writeJSON(w, `{"error":true,"message":"deleted","body":null}`)
			return
		}
		writeJSON(w, `{"error":false,"message":"","body":{"content":"body of %v"}}`, id)
	})

	iter := srv.newClient(30).FetchAuthorNovels(7)

	_, err := iter.Next(context.Background())
	var recordErr *RecordError
	require.ErrorAs(t, err, &recordErr)
	require.Equal(t, int64(1), recordErr.NovelID)

	record, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), record.ID)

	_, err = iter.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestMislabeledResponsesStillDecode(t *testing.T) {
	srv := newAPIServer(t)

	// No Content-Type headers anywhere; Go sniffs text/plain. A 200 page
	// must still decode instead of reading as empty.
	srv.mux.HandleFunc("/v1/user/novels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"novels":[{"id":6}],"next_url":""}`)
	})
	srv.mux.HandleFunc("/v2/novel/detail", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"novel":{"id":6,"title":"mislabeled","user":{"id":9,"name":"writer"}}}`)
	})
	srv.mux.HandleFunc("/ajax/novel/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":false,"message":"","body":{"content":"still here"}}`)
	})

	iter := srv.newClient(30).FetchAuthorNovels(7)

	record, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "mislabeled", record.Title)
	require.Equal(t, "still here", record.Body)

	_, err = iter.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestFetchSeriesNovelsFollowsContentOrder(t *testing.T) {
	srv := newAPIServer(t)
	srv.serveDetails(t)

	srv.mux.HandleFunc("/ajax/novel/series_content/11", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"error":false,"message":"","body":{"page":{"seriesContents":[
			{"id":"3","series":{"contentOrder":2}},
			{"id":"9","series":{"contentOrder":1}},
			{"id":"bogus","series":{"contentOrder":3}}
		]}}}`)
	})

	iter := srv.newClient(30).FetchSeriesNovels(11)

	var got []int64
	for {
		record, err := iter.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, record.ID)
	}
	require.Equal(t, []int64{9, 3}, got)
}

func TestFetchBookmarkedNovelsDefaultsToSessionUser(t *testing.T) {
	srv := newAPIServer(t)
	srv.serveDetails(t)

	srv.mux.HandleFunc("/v1/user/bookmarks/novel", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "42", r.URL.Query().Get("user_id"))
		require.Equal(t, "private", r.URL.Query().Get("restrict"))
		require.Equal(t, "favorites", r.URL.Query().Get("tag"))
		writeNovelList(w, srv.URL, false, 8)
	})

	iter := srv.newClient(30).FetchBookmarkedNovels(0, "private", "favorites")

	record, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(8), record.ID)

	_, err = iter.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestSearchNovelsPassesQuery(t *testing.T) {
	srv := newAPIServer(t)
	srv.serveDetails(t)

	srv.mux.HandleFunc("/v1/search/novel", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ghost story", r.URL.Query().Get("word"))
		require.Equal(t, "text", r.URL.Query().Get("search_target"))
		require.Equal(t, "date_desc", r.URL.Query().Get("sort"))
		writeNovelList(w, srv.URL, false, 4)
	})

	iter := srv.newClient(30).SearchNovels("ghost story", "text", "date_desc")

	record, err := iter.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "novel 4", record.Title)
	require.Equal(t, int64(4), record.ID)
}
