package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/sirupsen/logrus"

	"formazing-backend/config"
	"formazing-backend/internal/model"
)

// apiPrefix is the path prefix notionapi puts in front of every endpoint.
const apiPrefix = "/v1"

// Client reads and updates training pages in one Notion database.
type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
	pageSize   int
	loc        *time.Location
	log        logrus.FieldLogger
}

// NewClient creates a Notion client from the configuration.
func NewClient(cfg *config.NotionConfig, token, databaseID string, loc *time.Location, log logrus.FieldLogger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid notion base url: %w", err)
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &endpointTransport{base: base, version: cfg.Version, next: http.DefaultTransport},
	}
	return &Client{
		api:        notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(httpClient)),
		databaseID: notionapi.DatabaseID(databaseID),
		pageSize:   cfg.PageSize,
		loc:        loc,
		log:        log,
	}, nil
}

// ListByStatus returns every translatable training in the given status, ordered by date.
func (c *Client) ListByStatus(ctx context.Context, status model.Status) ([]model.Training, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: propStatus,
			Status:   &notionapi.StatusFilterCondition{Equals: string(status)},
		},
		Sorts:    []notionapi.SortObject{{Property: propDate, Direction: notionapi.SortOrderASC}},
		PageSize: c.pageSize,
	}

	var out []model.Training
	for page := 1; ; page++ {
		resp, err := c.api.Database.Query(ctx, c.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("failed to query page %d: %w", page, describe(err))
		}
		for i := range resp.Results {
			p := &resp.Results[i]
			t, err := toTraining(p, c.loc)
			if err != nil {
				c.log.WithError(err).WithField("page_id", string(p.ID)).Warn("dropping malformed training page")
				continue
			}
			out = append(out, *t)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}
	c.log.WithFields(logrus.Fields{"status": status, "count": len(out)}).Debug("listed trainings")
	return out, nil
}

// Get returns the training with the given page id, or model.ErrTrainingNotFound
// when the page is missing or cannot be translated.
func (c *Client) Get(ctx context.Context, id string) (*model.Training, error) {
	p, err := c.api.Page.Get(ctx, notionapi.PageID(id))
	if err != nil {
		if isMissing(err) {
			return nil, model.ErrTrainingNotFound
		}
		return nil, describe(err)
	}
	if p.Archived {
		return nil, model.ErrTrainingNotFound
	}
	t, err := toTraining(p, c.loc)
	if err != nil {
		c.log.WithError(err).WithField("page_id", id).Warn("training page cannot be translated")
		return nil, model.ErrTrainingNotFound
	}
	return t, nil
}

// Update writes the non-nil fields of u in a single request.
func (c *Client) Update(ctx context.Context, id string, u model.TrainingUpdate) error {
	props := fromUpdate(u)
	if len(props) == 0 {
		return nil
	}
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
		if isMissing(err) {
			return model.ErrTrainingNotFound
		}
		return describe(err)
	}
	return nil
}

// isMissing reports whether Notion rejected the page id. Malformed ids come back as 400s.
func isMissing(err error) bool {
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case notionapi.ErrorCode("object_not_found"), notionapi.ErrorCode("validation_error"):
		return true
	}
	return apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest
}

func describe(err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("notion returned %d (%s): %s", apiErr.Status, apiErr.Code, apiErr.Message)
	}
	return err
}

// endpointTransport points notionapi's fixed https://api.notion.com/v1 endpoints at
// the configured base URL and pins the Notion-Version header.
type endpointTransport struct {
	base    *url.URL
	version string
	next    http.RoundTripper
}

func (t *endpointTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.URL.Path = t.base.Path + strings.TrimPrefix(r.URL.Path, apiPrefix)
	r.URL.RawPath = ""
	r.Host = t.base.Host
	if t.version != "" {
		r.Header.Set("Notion-Version", t.version)
	}
	return t.next.RoundTrip(r)
}
