package triage

import (
	"strings"
	"text/template"
)

// TemplateData is interpolated into reply templates.
type TemplateData struct {
	FromName       string
	SchedulingLink string
}

// replyTemplates maps language -> category -> template source. Categories
// without an entry (spam, legal) fall back to general.
var replyTemplates = map[string]map[Category]string{
	"en": {
		CategoryBooking: "Hi,\n\nThank you for reaching out about scheduling." +
			"{{if .SchedulingLink}}\nBook directly here: {{.SchedulingLink}}{{else}} I will get back to you shortly.{{end}}" +
			"\n\nBest regards,\n{{.FromName}}",
		CategoryInquiry: "Hi,\n\nThank you for your interest! I'll get back to you with a full response within 24 hours.\n\nBest regards,\n{{.FromName}}",
		CategorySupport: "Hi,\n\nThank you for reaching out. I've received your request and am looking into it.\n\nBest regards,\n{{.FromName}}",
		CategoryBilling: "Hi,\n\nThank you for your message. I'm reviewing your billing query and will respond shortly.\n\nBest regards,\n{{.FromName}}",
		CategoryGeneral: "Hi,\n\nThank you for your email. I'll respond as soon as possible.\n\nBest regards,\n{{.FromName}}",
	},
	"de": {
		CategoryBooking: "Hallo,\n\nvielen Dank für Ihre Terminanfrage." +
			"{{if .SchedulingLink}}\nBuchen Sie direkt hier: {{.SchedulingLink}}{{else}} Ich melde mich in Kürze bei Ihnen.{{end}}" +
			"\n\nMit freundlichen Grüßen\n{{.FromName}}",
		CategoryInquiry: "Hallo,\n\nvielen Dank für Ihr Interesse. Sie erhalten innerhalb von 24 Stunden eine Antwort.\n\nMit freundlichen Grüßen\n{{.FromName}}",
		CategorySupport: "Hallo,\n\nvielen Dank für Ihre Nachricht. Ich bearbeite Ihr Anliegen und melde mich baldmöglichst.\n\nMit freundlichen Grüßen\n{{.FromName}}",
		CategoryBilling: "Hallo,\n\nvielen Dank für Ihre Rechnungsanfrage. Ich prüfe den Sachverhalt umgehend.\n\nMit freundlichen Grüßen\n{{.FromName}}",
		CategoryGeneral: "Hallo,\n\nvielen Dank für Ihre E-Mail. Ich melde mich schnellstmöglich.\n\nMit freundlichen Grüßen\n{{.FromName}}",
	},
}

var compiledTemplates = compileTemplates()

func compileTemplates() map[string]map[Category]*template.Template {
	out := make(map[string]map[Category]*template.Template, len(replyTemplates))
	for lang, byCategory := range replyTemplates {
		out[lang] = make(map[Category]*template.Template, len(byCategory))
		for category, src := range byCategory {
			out[lang][category] = template.Must(template.New(lang + "/" + string(category)).Parse(src))
		}
	}
	return out
}

// SupportedLanguage reports whether reply templates exist for lang.
func SupportedLanguage(lang string) bool {
	_, ok := compiledTemplates[strings.ToLower(lang)]
	return ok
}

// RenderReply renders the reply for category in lang. Unknown languages use
// English and unknown categories use the general template.
func RenderReply(category Category, lang string, data TemplateData) string {
	byCategory, ok := compiledTemplates[strings.ToLower(lang)]
	if !ok {
		byCategory = compiledTemplates[DefaultLanguage]
	}
	tmpl, ok := byCategory[category]
	if !ok {
		tmpl = byCategory[CategoryGeneral]
	}
	if data.FromName == "" {
		data.FromName = DefaultFromName
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		// templates are compiled from constants and only read string fields
		panic(err)
	}
	return sb.String()
}
