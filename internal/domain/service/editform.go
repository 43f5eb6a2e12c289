package service

import (
	"strings"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/model"
)

// contentCodec converts an approval's content document to an edit form and
// back. One codec per specialized resource type; everything else falls back
// to the generic single-field codec.
type contentCodec interface {
	// Fields renders the form for editing doc.
	Fields(doc model.Document) []model.FormField

	// Extract rebuilds a content document from submitted form values,
	// ignoring fields it does not own.
	Extract(values map[string]string) model.Document
}

var codecs = map[model.ResourceType]contentCodec{
	model.ResourceEmailDraft: emailDraftCodec{},
	model.ResourceTaskList:   taskListCodec{},
}

// codecFor returns the codec for a resource type, defaulting to the generic
// one-field codec for types without a specialized form.
func codecFor(rt model.ResourceType) contentCodec {
	if c, ok := codecs[rt]; ok {
		return c
	}
	return genericCodec{}
}

// emailDraftCodec edits {subject, body}, surfacing the recipient as
// read-only context when present.
type emailDraftCodec struct{}

func (emailDraftCodec) Fields(doc model.Document) []model.FormField {
	fields := []model.FormField{}
	if to := doc.StringField("to"); to != "" {
		fields = append(fields, model.FormField{
			ID:       "to",
			Label:    "To",
			Initial:  to,
			ReadOnly: true,
		})
	}
	fields = append(fields,
		model.FormField{ID: "subject", Label: "Subject", Initial: doc.StringField("subject")},
		model.FormField{ID: "body", Label: "Body", Initial: doc.StringField("body"), Multiline: true},
	)
	return fields
}

func (emailDraftCodec) Extract(values map[string]string) model.Document {
	return model.Document{
		"subject": values["subject"],
		"body":    values["body"],
	}
}

// taskListCodec edits the task list as one newline-joined text area.
type taskListCodec struct{}

func (taskListCodec) Fields(doc model.Document) []model.FormField {
	return []model.FormField{{
		ID:        "tasks",
		Label:     "Tasks (one per line)",
		Initial:   strings.Join(doc.StringSliceField("tasks"), "\n"),
		Multiline: true,
	}}
}

func (taskListCodec) Extract(values map[string]string) model.Document {
	var tasks []string
	for _, line := range strings.Split(values["tasks"], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tasks = append(tasks, line)
		}
	}
	return model.Document{"tasks": tasks}
}

// genericCodec edits the whole document as a single content field.
type genericCodec struct{}

func (genericCodec) Fields(doc model.Document) []model.FormField {
	return []model.FormField{{
		ID:        "content",
		Label:     "Content",
		Initial:   doc.StringField("content"),
		Multiline: true,
	}}
}

func (genericCodec) Extract(values map[string]string) model.Document {
	return model.Document{"content": values["content"]}
}
