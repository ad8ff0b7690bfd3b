package notion

import (
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"formazing-backend/internal/model"
	"formazing-backend/internal/parse"
)

// Database property names.
const (
	propName   = "Nome"
	propAreas  = "Area"
	propDate   = "Date"
	propStatus = "Stato"
	propCode   = "Codice"
	propLink   = "Link Teams"
	propPeriod = "Periodo"
)

func plain(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, p := range parts {
		switch {
		case p.PlainText != "":
			b.WriteString(p.PlainText)
		case p.Text != nil:
			b.WriteString(p.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

// dateStart renders a date property start the way Notion writes it: date-only
// values decode to UTC midnight and go back to YYYY-MM-DD.
func dateStart(prop notionapi.Property) (string, bool) {
	p, ok := prop.(*notionapi.DateProperty)
	if !ok || p.Date == nil || p.Date.Start == nil {
		return "", false
	}
	t := time.Time(*p.Date.Start)
	if _, offset := t.Zone(); offset == 0 && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format("2006-01-02"), true
	}
	return t.Format(time.RFC3339), true
}

// toTraining translates a page. Name, areas, date and status are required.
func toTraining(p *notionapi.Page, loc *time.Location) (*model.Training, error) {
	props := p.Properties
	t := &model.Training{ID: string(p.ID)}

	if title, ok := props[propName].(*notionapi.TitleProperty); ok {
		t.Name = plain(title.Title)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("missing %s", propName)
	}

	var raw []string
	if ms, ok := props[propAreas].(*notionapi.MultiSelectProperty); ok {
		for _, o := range ms.MultiSelect {
			raw = append(raw, o.Name)
		}
	}
	t.Areas = model.NormalizeAreas(raw)
	if len(t.Areas) == 0 {
		return nil, fmt.Errorf("missing %s", propAreas)
	}

	start, ok := dateStart(props[propDate])
	if !ok {
		return nil, fmt.Errorf("missing %s", propDate)
	}
	at, err := parse.NotionDate(start, loc)
	if err != nil {
		return nil, err
	}
	t.ScheduledAt = at

	s, ok := props[propStatus].(*notionapi.StatusProperty)
	if !ok {
		return nil, fmt.Errorf("missing %s", propStatus)
	}
	if t.Status, err = model.ParseStatus(s.Status.Name); err != nil {
		return nil, err
	}

	if rt, ok := props[propCode].(*notionapi.RichTextProperty); ok {
		t.Code = plain(rt.RichText)
	}
	if u, ok := props[propLink].(*notionapi.URLProperty); ok {
		t.MeetingLink = strings.TrimSpace(u.URL)
	}
	if sel, ok := props[propPeriod].(*notionapi.SelectProperty); ok {
		t.Period = normalizePeriod(sel.Select.Name)
	}
	return t, nil
}

func normalizePeriod(raw string) string {
	p := strings.TrimSpace(raw)
	if strings.EqualFold(p, model.PeriodOut) {
		return model.PeriodOut
	}
	return p
}

// fromUpdate builds the properties of a partial update.
func fromUpdate(u model.TrainingUpdate) notionapi.Properties {
	props := make(notionapi.Properties, 3)
	if u.Status != nil {
		props[propStatus] = &notionapi.StatusProperty{Status: notionapi.Status{Name: string(*u.Status)}}
	}
	if u.Code != nil {
		props[propCode] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: *u.Code}}},
		}
	}
	if u.MeetingLink != nil {
		props[propLink] = &notionapi.URLProperty{URL: *u.MeetingLink}
	}
	return props
}
