package pixiv

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"pixiv-novel-downloader/model"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultAPIBaseURL = "https://app-api.pixiv.net"
	defaultWebBaseURL = "https://www.pixiv.net"
)

// Client issues authenticated requests against the platform API. Listing
// calls return lazy iterators; every record is resolved into its full form
// (metadata plus markup body) only when consumed.
type Client struct {
	http       *resty.Client
	auth       *Authenticator
	logger     *zap.Logger
	apiBaseURL string
	webBaseURL string
	pageSize   int
}

// ClientOptions configures a Client. Zero values fall back to the platform
// hosts and the default page size.
type ClientOptions struct {
	APIBaseURL string
	WebBaseURL string
	PageSize   int
}

func NewClient(http *resty.Client, auth *Authenticator, opts ClientOptions, logger *zap.Logger) *Client {
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = defaultAPIBaseURL
	}
	if opts.WebBaseURL == "" {
		opts.WebBaseURL = defaultWebBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 30
	}
	return &Client{
		http:       http,
		auth:       auth,
		logger:     logger,
		apiBaseURL: opts.APIBaseURL,
		webBaseURL: opts.WebBaseURL,
		pageSize:   opts.PageSize,
	}
}

// get performs an authorized GET. A single 401 invalidates the session and
// retries the same request once; a second 401 is fatal.
func (c *Client) get(ctx context.Context, url string, params map[string]string, out any) error {
	retried := false
	for {
		session, err := c.auth.GetValidSession(ctx)
		if err != nil {
			return err
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetHeader("Authorization", "Bearer "+session.AccessToken).
			SetResult(out).
			// Every endpoint speaks JSON; decode even when the response is
			// mislabeled so a 200 can never quietly become an empty page.
			ForceContentType("application/json").
			Get(url)
		if err != nil {
			return &APIError{Endpoint: url, Err: err}
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			if retried {
				return &APIError{Endpoint: url, StatusCode: resp.StatusCode()}
			}
			c.logger.Warn("unauthorized response, invalidating session", zap.String("endpoint", url))
			c.auth.OnUnauthorized()
			retried = true
			continue
		}
		if resp.StatusCode() != http.StatusOK {
			return &APIError{Endpoint: url, StatusCode: resp.StatusCode()}
		}
		return nil
	}
}

// FetchNovel returns a one-element sequence for the given novel id.
func (c *Client) FetchNovel(novelID int64) *NovelIter {
	fetched := false
	return c.newIter(func(ctx context.Context, offset int) ([]int64, bool, error) {
		if fetched {
			return nil, false, nil
		}
		fetched = true
		return []int64{novelID}, false, nil
	})
}

// FetchAuthorNovels returns all novels by the given author, in server order.
func (c *Client) FetchAuthorNovels(authorID int64) *NovelIter {
	return c.newIter(func(ctx context.Context, offset int) ([]int64, bool, error) {
		return c.listNovels(ctx, c.apiBaseURL+"/v1/user/novels", map[string]string{
			"user_id": strconv.FormatInt(authorID, 10),
			"filter":  "for_ios",
			"offset":  strconv.Itoa(offset),
			"limit":   strconv.Itoa(c.pageSize),
		})
	})
}

// FetchBookmarkedNovels returns the user's bookmarked novels. A zero userID
// means the authenticated user. restrict is "public" or "private"; tag
// optionally narrows the list.
func (c *Client) FetchBookmarkedNovels(userID int64, restrict, tag string) *NovelIter {
	return c.newIter(func(ctx context.Context, offset int) ([]int64, bool, error) {
		if userID == 0 {
			session, err := c.auth.GetValidSession(ctx)
			if err != nil {
				return nil, false, err
			}
			id, err := strconv.ParseInt(session.UserID, 10, 64)
			if err != nil {
				return nil, false, fmt.Errorf("failed to parse session user id %q: %w", session.UserID, err)
			}
			userID = id
		}
		params := map[string]string{
			"user_id":  strconv.FormatInt(userID, 10),
			"restrict": restrict,
			"filter":   "for_ios",
			"offset":   strconv.Itoa(offset),
			"limit":    strconv.Itoa(c.pageSize),
		}
		if tag != "" {
			params["tag"] = tag
		}
		return c.listNovels(ctx, c.apiBaseURL+"/v1/user/bookmarks/novel", params)
	})
}

// SearchNovels returns search results for word. target is one of "text",
// "keyword", "tag"; sort one of "date_desc", "date_asc", "popular_desc".
func (c *Client) SearchNovels(word, target, sort string) *NovelIter {
	return c.newIter(func(ctx context.Context, offset int) ([]int64, bool, error) {
		return c.listNovels(ctx, c.apiBaseURL+"/v1/search/novel", map[string]string{
			"word":                           word,
			"search_target":                  target,
			"sort":                           sort,
			"merge_plain_keyword_results":    "true",
			"include_translated_tag_results": "true",
			"filter":                         "for_ios",
			"offset":                         strconv.Itoa(offset),
			"limit":                          strconv.Itoa(c.pageSize),
		})
	})
}

// FetchSeriesNovels returns the novels of a series in series order.
func (c *Client) FetchSeriesNovels(seriesID int64) *NovelIter {
	fetched := false
	return c.newIter(func(ctx context.Context, offset int) ([]int64, bool, error) {
		if fetched {
			return nil, false, nil
		}
		fetched = true
		return c.listSeriesContents(ctx, seriesID)
	})
}

type novelListPage struct {
	Novels []struct {
		ID int64 `json:"id"`
	} `json:"novels"`
	NextURL string `json:"next_url"`
}

func (c *Client) listNovels(ctx context.Context, url string, params map[string]string) ([]int64, bool, error) {
	var page novelListPage
	if err := c.get(ctx, url, params, &page); err != nil {
		return nil, false, err
	}

	ids := make([]int64, 0, len(page.Novels))
	for _, n := range page.Novels {
		ids = append(ids, n.ID)
	}

	hasMore := len(ids) >= c.pageSize && page.NextURL != ""
	return ids, hasMore, nil
}

func (c *Client) listSeriesContents(ctx context.Context, seriesID int64) ([]int64, bool, error) {
	url := fmt.Sprintf("%v/ajax/novel/series_content/%v", c.webBaseURL, seriesID)

	var out struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
		Body    struct {
			Page struct {
				SeriesContents []struct {
					ID     string `json:"id"`
					Series struct {
						ContentOrder int `json:"contentOrder"`
					} `json:"series"`
				} `json:"seriesContents"`
			} `json:"page"`
		} `json:"body"`
	}
	if err := c.get(ctx, url, map[string]string{"order_by": "asc"}, &out); err != nil {
		return nil, false, err
	}
	if out.Error {
		return nil, false, &APIError{Endpoint: url, Err: fmt.Errorf("series listing failed: %v", out.Message)}
	}

	contents := out.Body.Page.SeriesContents
	sort.SliceStable(contents, func(i, j int) bool {
		return contents[i].Series.ContentOrder < contents[j].Series.ContentOrder
	})

	ids := make([]int64, 0, len(contents))
	for _, entry := range contents {
		id, err := strconv.ParseInt(entry.ID, 10, 64)
		if err != nil {
			c.logger.Warn("skipping series entry with bad id", zap.String("id", entry.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, false, nil
}

// resolveNovel fetches one novel's metadata and markup body.
func (c *Client) resolveNovel(ctx context.Context, novelID int64) (*model.NovelRecord, error) {
	c.logger.Debug("resolving novel", zap.Int64("novel_id", novelID))

	var detail struct {
		Novel model.NovelRecord `json:"novel"`
	}
	err := c.get(ctx, c.apiBaseURL+"/v2/novel/detail", map[string]string{
		"novel_id": strconv.FormatInt(novelID, 10),
	}, &detail)
	if err != nil {
		return nil, err
	}

	body, err := c.fetchNovelBody(ctx, novelID)
	if err != nil {
		return nil, err
	}

	record := detail.Novel
	record.ID = novelID
	record.Body = body
	return &record, nil
}

func (c *Client) fetchNovelBody(ctx context.Context, novelID int64) (string, error) {
	url := fmt.Sprintf("%v/ajax/novel/%v", c.webBaseURL, novelID)

	var out struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
		Body    struct {
			Content string `json:"content"`
		} `json:"body"`
	}
	if err := c.get(ctx, url, nil, &out); err != nil {
		return "", err
	}
	if out.Error {
		return "", &APIError{Endpoint: url, Err: fmt.Errorf("body fetch failed: %v", out.Message)}
	}
	return out.Body.Content, nil
}
