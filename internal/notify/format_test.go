package notify

import (
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"formazing-backend/internal/model"
)

func sampleTraining() *model.Training {
	return &model.Training{
		ID:          "page-1",
		Name:        "Security Basics",
		Areas:       []string{"IT", "R&D"},
		ScheduledAt: time.Date(2024, 10, 15, 14, 30, 0, 0, time.UTC),
		Status:      model.StatusCalendarized,
		Code:        "IT-Security_Basics-2024-SPRING-01",
		MeetingLink: "https://teams.microsoft.com/l/meetup-join/abc",
		Period:      "SPRING",
	}
}

func TestFormatter_SelectsTemplateByTarget(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	f := NewFormatter(Templates{
		Broadcast: "B {{.name}}",
		Group:     "G {{.name}} {{.areas}}",
		Feedback:  "F {{.name}} {{.feedback_link}}",
	}, logger)
	tr := sampleTraining()

	assert.Equal(t, "B Security Basics", f.FormatTraining(tr, model.MainGroup))
	assert.Equal(t, "G Security Basics IT, R&amp;D", f.FormatTraining(tr, "IT"))
	assert.Equal(t, "G Security Basics IT, R&amp;D", f.FormatTraining(tr, "HR"))
	assert.Equal(t, "F Security Basics https://forms.example/x", f.FormatFeedback(tr, "https://forms.example/x", "IT"))
}

func TestFormatter_DefaultTemplatesResolveEveryPlaceholder(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	f := NewFormatter(Templates{}, logger)
	tr := sampleTraining()

	messages := []string{
		f.FormatTraining(tr, model.MainGroup),
		f.FormatTraining(tr, "IT"),
		f.FormatFeedback(tr, "https://forms.office.com/e/x", "IT"),
	}
	for _, msg := range messages {
		assert.NotContains(t, msg, "{{")
		assert.NotContains(t, msg, Missing)
		assert.Contains(t, msg, "Security Basics")
		assert.Contains(t, msg, "IT-Security_Basics-2024-SPRING-01")
	}
	assert.Contains(t, messages[0], "15/10/2024 14:30")
	assert.Contains(t, messages[0], `href="https://teams.microsoft.com/l/meetup-join/abc"`)
	assert.Contains(t, messages[2], `href="https://forms.office.com/e/x"`)
	assert.Empty(t, hook.Entries)
}

func TestFormatter_MissingAttributesRenderAsNA(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	f := NewFormatter(Templates{Group: "{{.name}}|{{.code}}|{{.link}}|{{.datetime}}"}, logger)

	tr := &model.Training{Name: "Excel", Areas: []string{"HR"}}
	assert.Equal(t, "Excel|N/A|N/A|N/A", f.FormatTraining(tr, "HR"))
}

func TestFormatter_UnknownPlaceholderFallsBack(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	f := NewFormatter(Templates{
		Broadcast: "{{.name}} {{.speaker}}",
		Feedback:  "{{.feedback_url}}",
		Group:     "{{.name",
	}, logger)
	tr := sampleTraining()

	msg := f.FormatTraining(tr, model.MainGroup)
	assert.True(t, strings.HasPrefix(msg, "❌"))
	assert.Contains(t, msg, "Security Basics")

	msg = f.FormatTraining(tr, "IT")
	assert.True(t, strings.HasPrefix(msg, "❌"))
	assert.Contains(t, msg, "Security Basics")

	msg = f.FormatFeedback(tr, "https://forms.example/x", "IT")
	assert.Contains(t, msg, "feedback")
	assert.Contains(t, msg, "Security Basics")

	assert.NotEmpty(t, hook.Entries)
}

func TestFields_EscapesHTML(t *testing.T) {
	tr := &model.Training{Name: "<script>", Areas: []string{"R&D"}}
	fields := Fields(tr)
	assert.Equal(t, "&lt;script&gt;", fields["name"])
	assert.Equal(t, "R&amp;D", fields["areas"])
	assert.Equal(t, Missing, fields["code"])
}
