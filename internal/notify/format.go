package notify

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"

	"formazing-backend/internal/model"
	"formazing-backend/internal/parse"
)

// Missing renders in place of any empty training attribute.
const Missing = "N/A"

// Templates are the text/template sources of the three Telegram messages.
type Templates struct {
	Broadcast string
	Group     string
	Feedback  string
}

// DefaultTemplates are used for every template left empty in the configuration.
var DefaultTemplates = Templates{
	Broadcast: `🌐 <b>Nuova formazione!</b>

📚 <b>Argomento:</b> {{.name}}
🏢 <b>Area:</b> {{.areas}}
📅 <b>Data e ora:</b> {{.datetime}}
🔗 <b>Link Teams:</b> <a href="{{.link}}">Partecipa qui</a>
🏷 <b>Codice:</b> <code>{{.code}}</code>

💡 <i>Salva il codice per il feedback post-formazione!</i>`,
	Group: `📅 <b>Nuova formazione per {{.areas}}!</b>

📚 <b>Argomento:</b> {{.name}}
📅 <b>Data e ora:</b> {{.datetime}}
🔗 <b>Link Teams:</b> <a href="{{.link}}">Partecipa qui</a>
🏷 <b>Codice:</b> <code>{{.code}}</code>

✅ <i>Ricordati di partecipare e salvare il codice per il feedback!</i>`,
	Feedback: `📝 <b>Feedback richiesto!</b>

📚 <b>Formazione:</b> {{.name}}
🏢 <b>Area:</b> {{.areas}}
🏷 <b>Codice:</b> <code>{{.code}}</code>

👆 <b><a href="{{.feedback_link}}">Clicca qui per lasciare il tuo feedback</a></b>

⏰ <i>Ti servono solo 2 minuti per aiutarci a migliorare!</i>`,
}

// Formatter renders Telegram messages for trainings. It never fails: a broken
// template produces a fallback text naming the training.
type Formatter struct {
	broadcast *template.Template
	group     *template.Template
	feedback  *template.Template
	log       logrus.FieldLogger
}

// NewFormatter parses the given templates, falling back to DefaultTemplates for empty ones.
func NewFormatter(t Templates, log logrus.FieldLogger) *Formatter {
	if t.Broadcast == "" {
		t.Broadcast = DefaultTemplates.Broadcast
	}
	if t.Group == "" {
		t.Group = DefaultTemplates.Group
	}
	if t.Feedback == "" {
		t.Feedback = DefaultTemplates.Feedback
	}
	return &Formatter{
		broadcast: compile("broadcast", t.Broadcast, log),
		group:     compile("group", t.Group, log),
		feedback:  compile("feedback", t.Feedback, log),
		log:       log,
	}
}

// compile parses a message template with strict key lookup. A parse error is
// logged and yields nil, which Execute turns into the fallback text.
func compile(name, src string, log logrus.FieldLogger) *template.Template {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		log.WithError(err).WithField("template", name).Error("invalid message template")
		return nil
	}
	return tmpl
}

// Fields is the substitution set of a training: every value is HTML-escaped
// and empty values become Missing.
func Fields(t *model.Training) map[string]string {
	return map[string]string{
		"name":     value(t.Name),
		"areas":    value(strings.Join(t.Areas, ", ")),
		"datetime": value(parse.Short(t.ScheduledAt)),
		"code":     value(t.Code),
		"link":     value(t.MeetingLink),
		"period":   value(t.Period),
	}
}

func value(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return html.EscapeString(s)
}

// FormatTraining renders the announcement for one target group.
func (f *Formatter) FormatTraining(t *model.Training, targetKey string) string {
	tmpl := f.group
	if targetKey == model.MainGroup {
		tmpl = f.broadcast
	}
	msg, err := Execute(tmpl, Fields(t))
	if err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{
			"training_id": t.ID,
			"target":      targetKey,
		}).Error("failed to format training message")
		return fmt.Sprintf("❌ Errore nella formattazione del messaggio per la formazione: %s", value(t.Name))
	}
	return msg
}

// FormatFeedback renders the feedback request for one target group.
func (f *Formatter) FormatFeedback(t *model.Training, feedbackLink, targetKey string) string {
	data := Fields(t)
	data["feedback_link"] = value(feedbackLink)
	msg, err := Execute(f.feedback, data)
	if err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{
			"training_id": t.ID,
			"target":      targetKey,
		}).Error("failed to format feedback message")
		return fmt.Sprintf("❌ Errore nella formattazione del messaggio feedback per la formazione: %s", value(t.Name))
	}
	return msg
}

// Execute renders tmpl with data. A nil template is an error.
func Execute(tmpl *template.Template, data map[string]string) (string, error) {
	if tmpl == nil {
		return "", fmt.Errorf("template is not available")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
