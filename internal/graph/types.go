package graph

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type dateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type attendee struct {
	EmailAddress emailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

type eventRequest struct {
	Subject               string       `json:"subject"`
	Body                  itemBody     `json:"body"`
	Start                 dateTimeZone `json:"start"`
	End                   dateTimeZone `json:"end"`
	Attendees             []attendee   `json:"attendees"`
	IsOnlineMeeting       bool         `json:"isOnlineMeeting"`
	OnlineMeetingProvider string       `json:"onlineMeetingProvider"`
}

type eventResponse struct {
	ID            string `json:"id"`
	WebLink       string `json:"webLink"`
	OnlineMeeting *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
