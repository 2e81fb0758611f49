package services

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/charlesng35/agencydesk/internal/models"
)

type textRenderer = *texttemplate.Template
type htmlRenderer = *htmltemplate.Template

type priorityBadge struct {
	Label string
	Color string
}

func priorityBadgeFor(priority string) priorityBadge {
	switch models.NormalizePriority(priority) {
	case models.PriorityHighest:
		return priorityBadge{Label: "Highest", Color: "#b91c1c"}
	case models.PriorityHigh:
		return priorityBadge{Label: "High", Color: "#ea580c"}
	case models.PriorityLow:
		return priorityBadge{Label: "Low", Color: "#15803d"}
	default:
		return priorityBadge{Label: "Medium", Color: "#2563eb"}
	}
}

type assignmentView struct {
	Greeting      string
	RecipientName string
	AssignerName  string
	Details       ReviewDetails
	Priority      priorityBadge
	SiteName      string
	AdminURL      string
}

func (v assignmentView) ContactName() string {
	return strings.TrimSpace(v.Details.FirstName + " " + v.Details.LastName)
}

func (v assignmentView) subjectLabel() string {
	if v.Details.Title != "" {
		return v.Details.Title
	}
	if name := v.ContactName(); name != "" {
		return name
	}
	return defaultIfEmpty(v.Details.Company, "work item")
}

type reminderView struct {
	Greeting      string
	RecipientName string
	Item          WorkItem
	Label         string
	Days          int
	Priority      priorityBadge
	SiteName      string
	AdminURL      string
}

var assignmentText = texttemplate.Must(texttemplate.New("assignment.txt").Parse(`{{.Greeting}} {{.RecipientName}},

{{.AssignerName}} assigned you a new item on {{.SiteName}}.
{{with .ContactName}}
Client: {{.}}{{end}}{{with .Details.Company}}
Company: {{.}}{{end}}{{with .Details.Email}}
Email: {{.}}{{end}}{{with .Details.Phone}}
Phone: {{.}}{{end}}{{with .Details.Title}}
Title: {{.}}{{end}}
Priority: {{.Priority.Label}}{{with .Details.ClientStatus}}
Status: {{.}}{{end}}
{{with .Details.Message}}
{{.}}
{{end}}{{with .AdminURL}}
Open the admin panel: {{.}}
{{end}}`))

var assignmentHTML = htmltemplate.Must(htmltemplate.New("assignment.html").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px">
<p>{{.Greeting}} {{.RecipientName}},</p>
<p><strong>{{.AssignerName}}</strong> assigned you a new item on {{.SiteName}}.</p>
<p><span style="background:{{.Priority.Color}};color:#fff;padding:2px 8px;border-radius:4px">{{.Priority.Label}} priority</span></p>
<table cellpadding="4">
{{with .ContactName}}<tr><td>Client</td><td>{{.}}</td></tr>{{end}}
{{with .Details.Company}}<tr><td>Company</td><td>{{.}}</td></tr>{{end}}
{{with .Details.Email}}<tr><td>Email</td><td>{{.}}</td></tr>{{end}}
{{with .Details.Phone}}<tr><td>Phone</td><td>{{.}}</td></tr>{{end}}
{{with .Details.Title}}<tr><td>Title</td><td>{{.}}</td></tr>{{end}}
{{with .Details.ClientStatus}}<tr><td>Status</td><td>{{.}}</td></tr>{{end}}
</table>
{{with .Details.Message}}<blockquote>{{.}}</blockquote>{{end}}
{{with .AdminURL}}<p><a href="{{.}}">Open the admin panel</a></p>{{end}}
</div>`))

var reminderText = texttemplate.Must(texttemplate.New("reminder.txt").Parse(`{{.Greeting}} {{.RecipientName}},

{{.Label}} has been waiting for {{.Days}} days and is still {{.Item.Status}}.
Priority: {{.Priority.Label}}
{{with .AdminURL}}
Open the admin panel: {{.}}
{{end}}`))

var reminderHTML = htmltemplate.Must(htmltemplate.New("reminder.html").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px">
<p>{{.Greeting}} {{.RecipientName}},</p>
<p><strong>{{.Label}}</strong> has been waiting for {{.Days}} days and is still <em>{{.Item.Status}}</em>.</p>
<p><span style="background:{{.Priority.Color}};color:#fff;padding:2px 8px;border-radius:4px">{{.Priority.Label}} priority</span></p>
{{with .AdminURL}}<p><a href="{{.}}">Open the admin panel</a></p>{{end}}
</div>`))

func renderText(tmpl textRenderer, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(tmpl htmlRenderer, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
