package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"formazing-backend/config"
	"formazing-backend/internal/model"
	"formazing-backend/internal/notify"
	"formazing-backend/internal/parse"
)

const (
	eventTimeLayout = "2006-01-02T15:04:05"
	eventDuration   = time.Hour
	defaultSubject  = "Formazione: {{.name}}"
	defaultBody     = "Formazione <b>{{.name}}</b>\nData: {{.date}}\nArea: {{.areas}}\nCodice: {{.code}}"
)

// Client creates Teams meetings on the organizer's calendar through Microsoft Graph.
type Client struct {
	baseURL    string
	organizer  string
	timezone   string
	areaEmails map[string]string
	fallback   string
	subject    *template.Template
	body       *template.Template
	client     *http.Client
	log        logrus.FieldLogger
}

// Credentials identify the application registered in Azure AD.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Organizer    string
}

// NewClient builds a Graph client authenticated with the client-credentials flow.
func NewClient(cfg *config.GraphConfig, cal *config.CalendarConfig, timezone string, creds Credentials, log logrus.FieldLogger) (*Client, error) {
	oauth := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	// The token source uses the client stored in the context for token requests.
	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return newClient(cfg.BaseURL, cal, timezone, creds.Organizer, httpClient, log)
}

func newClient(baseURL string, cal *config.CalendarConfig, timezone, organizer string, httpClient *http.Client, log logrus.FieldLogger) (*Client, error) {
	subjectSrc, bodySrc := cal.SubjectTemplate, cal.BodyTemplate
	if subjectSrc == "" {
		subjectSrc = defaultSubject
	}
	if bodySrc == "" {
		bodySrc = defaultBody
	}
	subject, err := template.New("subject").Option("missingkey=error").Parse(subjectSrc)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar subject template: %w", err)
	}
	body, err := template.New("body").Option("missingkey=error").Parse(bodySrc)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar body template: %w", err)
	}

	fallback := cal.DefaultEmail
	if fallback == "" {
		fallback = cal.AreaEmails["default"]
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		organizer:  organizer,
		timezone:   timezone,
		areaEmails: cal.AreaEmails,
		fallback:   fallback,
		subject:    subject,
		body:       body,
		client:     httpClient,
		log:        log,
	}, nil
}

// Attendees maps area tags to mailing lists, falling back to the default
// address for unmapped areas. The result has no duplicates.
func (c *Client) Attendees(areas []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		email, ok := c.areaEmails[a]
		if !ok || email == "" {
			email = c.fallback
		}
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}

// Subject renders the plain-text event subject.
func (c *Client) Subject(t *model.Training) (string, error) {
	s, err := notify.Execute(c.subject, c.fields(t))
	if err != nil {
		return "", err
	}
	return html.UnescapeString(strings.TrimSpace(s)), nil
}

// Body renders the HTML event body.
func (c *Client) Body(t *model.Training) (string, error) {
	s, err := notify.Execute(c.body, c.fields(t))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "<br>"), nil
}

func (c *Client) fields(t *model.Training) map[string]string {
	f := notify.Fields(t)
	f["date"] = parse.Long(t.ScheduledAt)
	if f["date"] == "" {
		f["date"] = notify.Missing
	}
	return f
}

// CreateEvent creates a one-slot calendar event with an attached Teams meeting
// and invites the area mailing lists. It never retries.
func (c *Client) CreateEvent(ctx context.Context, t *model.Training) (*model.CalendarEvent, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, errors.New("training has no name")
	}
	if t.ScheduledAt.IsZero() {
		return nil, errors.New("training has no scheduled date")
	}

	subject, err := c.Subject(t)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	body, err := c.Body(t)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}
	emails := c.Attendees(t.Areas)

	req := eventRequest{
		Subject:               subject,
		Body:                  itemBody{ContentType: "HTML", Content: body},
		Start:                 dateTimeZone{DateTime: t.ScheduledAt.Format(eventTimeLayout), TimeZone: c.timezone},
		End:                   dateTimeZone{DateTime: t.ScheduledAt.Add(eventDuration).Format(eventTimeLayout), TimeZone: c.timezone},
		IsOnlineMeeting:       true,
		OnlineMeetingProvider: "teamsForBusiness",
		Attendees:             make([]attendee, 0, len(emails)),
	}
	for _, e := range emails {
		req.Attendees = append(req.Attendees, attendee{
			EmailAddress: emailAddress{Address: e, Name: "Team " + strings.Join(t.Areas, ", ")},
			Type:         "required",
		})
	}

	var resp eventResponse
	if err := c.post(ctx, "/users/"+url.PathEscape(c.organizer)+"/events", req, &resp); err != nil {
		return nil, err
	}
	if resp.OnlineMeeting == nil || resp.OnlineMeeting.JoinURL == "" {
		return nil, fmt.Errorf("event %s was created without an online meeting link", resp.ID)
	}

	c.log.WithFields(logrus.Fields{
		"training_id": t.ID,
		"event_id":    resp.ID,
		"attendees":   len(emails),
	}).Info("calendar event created")

	return &model.CalendarEvent{
		ID:             resp.ID,
		MeetingLink:    resp.OnlineMeeting.JoinURL,
		CalendarLink:   resp.WebLink,
		NotifiedEmails: emails,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			return fmt.Errorf("graph returned %d (%s): %s", resp.StatusCode, e.Error.Code, e.Error.Message)
		}
		return fmt.Errorf("graph returned non-2xx status code: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal graph response: %w", err)
	}
	return nil
}
