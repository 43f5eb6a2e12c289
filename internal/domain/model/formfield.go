package model

// FormField is one element of a resource-type-specific edit form. ReadOnly
// fields render as context (e.g. the recipient of an email draft) and are
// never submitted back.
type FormField struct {
	ID        string
	Label     string
	Initial   string
	Multiline bool
	ReadOnly  bool
}
