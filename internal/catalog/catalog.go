// Package catalog describes the admin collections staffdesk can browse:
// where each lives on the API, how its payload is wrapped, which fields
// search covers, what the table shows, and how records are edited.
package catalog

import (
	"net/url"
	"sort"
	"strings"
)

// Scope says how a collection is narrowed before it is fetched.
type Scope int

const (
	// ScopeNone collections are fetched whole.
	ScopeNone Scope = iota
	// ScopeParent collections belong to one record of their parent
	// resource (a client's users, a folder's documents).
	ScopeParent
	// ScopeUser collections belong to the signed-in staff member.
	ScopeUser
)

func (s Scope) String() string {
	switch s {
	case ScopeParent:
		return "parent"
	case ScopeUser:
		return "user"
	default:
		return "none"
	}
}

// Column is one table column.
type Column struct {
	Title string
	Path  string
	Width int
}

// Resource describes one admin collection.
type Resource struct {
	Name  string // CLI and config name, e.g. "client-users"
	Title string // tab label
	Noun  string // singular, used in notifications

	Path          string // API path segment under the base URL
	CollectionKey string // envelope key holding the list, besides "data"
	IDField       string

	PageSize     int
	SearchFields []string
	Columns      []Column

	RequiresToken bool
	Scope         Scope
	Parent        string // resource name of the parent, for ScopeParent
	ScopeField    string // record field holding the scope id
	Child         string // resource opened on drill-down, if any

	Deletable bool
	Form      []FormField
}

// CollectionPath returns the request path for the collection. Scoped
// resources append the scope id as a final segment.
func (r Resource) CollectionPath(scopeID string) string {
	if r.Scope == ScopeNone || scopeID == "" {
		return "/" + r.Path
	}
	return "/" + r.Path + "/" + url.PathEscape(scopeID)
}

// ItemPath returns the request path for a single record.
func (r Resource) ItemPath(id string) string {
	return "/" + r.Path + "/" + url.PathEscape(id)
}

// ID returns the record's identifier.
func (r Resource) ID(rec Record) string {
	field := r.IDField
	if field == "" {
		field = "id"
	}
	return rec.Get(field)
}

// Fields returns the searchable field values of rec.
func (r Resource) Fields(rec Record) []string {
	out := make([]string, len(r.SearchFields))
	for i, path := range r.SearchFields {
		out[i] = rec.Get(path)
	}
	return out
}

// Describe names rec for notifications: the first column's value, or
// the id when that is empty.
func (r Resource) Describe(rec Record) string {
	if len(r.Columns) > 0 {
		if v := strings.TrimSpace(rec.Get(r.Columns[0].Path)); v != "" {
			return v
		}
	}
	return r.ID(rec)
}

// Row returns the column values of rec in column order.
func (r Resource) Row(rec Record) []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = rec.Get(c.Path)
	}
	return out
}

// UsesUser reports whether fetching the collection needs the signed-in
// user id.
func (r Resource) UsesUser() bool { return r.Scope == ScopeUser }

// TopLevel reports whether the resource can be opened without first
// choosing a parent record.
func (r Resource) TopLevel() bool { return r.Scope != ScopeParent }

// Field returns the form field named name.
func (r Resource) Field(name string) (FormField, bool) {
	for _, f := range r.Form {
		if f.Name == name {
			return f, true
		}
	}
	return FormField{}, false
}

var resources = []Resource{
	{
		Name: "clients", Title: "Clients", Noun: "client",
		Path: "clients", CollectionKey: "clients", IDField: "id",
		PageSize:     8,
		SearchFields: []string{"name", "email", "company", "phone"},
		Columns: []Column{
			{Title: "Name", Path: "name", Width: 24},
			{Title: "Email", Path: "email", Width: 28},
			{Title: "Company", Path: "company", Width: 22},
			{Title: "Phone", Path: "phone", Width: 16},
		},
		RequiresToken: true,
		Child:         "client-users",
		Deletable:     true,
		Form: []FormField{
			{Name: "name", Label: "Name", Rules: "required,max=120"},
			{Name: "email", Label: "Email", Rules: "required,email"},
			{Name: "company", Label: "Company", Rules: "omitempty,max=120"},
			{Name: "phone", Label: "Phone", Rules: "omitempty,max=32"},
		},
	},
	{
		Name: "client-users", Title: "Client users", Noun: "client user",
		Path: "client-users", CollectionKey: "users", IDField: "id",
		PageSize:     8,
		SearchFields: []string{"name", "email", "role"},
		Columns: []Column{
			{Title: "Name", Path: "name", Width: 24},
			{Title: "Email", Path: "email", Width: 30},
			{Title: "Role", Path: "role", Width: 10},
		},
		RequiresToken: true,
		Scope:         ScopeParent,
		Parent:        "clients",
		ScopeField:    "client_id",
		Deletable:     true,
		Form: []FormField{
			{Name: "client_id", Label: "Client ID", Rules: "required"},
			{Name: "name", Label: "Name", Rules: "required,max=120"},
			{Name: "email", Label: "Email", Rules: "required,email"},
			{Name: "role", Label: "Role", Rules: "required,oneof=owner manager member", Choices: []string{"owner", "manager", "member"}},
		},
	},
	{
		Name: "jobs", Title: "Jobs", Noun: "job",
		Path: "jobs", CollectionKey: "jobs", IDField: "id",
		PageSize:     10,
		SearchFields: []string{"title", "client.name", "status", "location"},
		Columns: []Column{
			{Title: "Title", Path: "title", Width: 28},
			{Title: "Client", Path: "client.name", Width: 20},
			{Title: "Status", Path: "status", Width: 10},
			{Title: "Start", Path: "start_date", Width: 10},
		},
		RequiresToken: true,
		Deletable:     true,
		Form: []FormField{
			{Name: "title", Label: "Title", Rules: "required,max=160"},
			{Name: "client_id", Label: "Client ID", Rules: "required"},
			{Name: "status", Label: "Status", Rules: "required,oneof=open assigned completed cancelled", Choices: []string{"open", "assigned", "completed", "cancelled"}},
			{Name: "location", Label: "Location", Rules: "omitempty,max=120"},
			{Name: "start_date", Label: "Start date", Rules: "omitempty,datetime=2006-01-02", Placeholder: "YYYY-MM-DD"},
		},
	},
	{
		Name: "invoices", Title: "Invoices", Noun: "invoice",
		Path: "invoices", CollectionKey: "invoices", IDField: "id",
		PageSize:     10,
		SearchFields: []string{"number", "client.name", "status"},
		Columns: []Column{
			{Title: "Number", Path: "number", Width: 12},
			{Title: "Client", Path: "client.name", Width: 22},
			{Title: "Amount", Path: "amount", Width: 10},
			{Title: "Status", Path: "status", Width: 8},
			{Title: "Due", Path: "due_date", Width: 10},
		},
		RequiresToken: true,
		Deletable:     true,
		Form: []FormField{
			{Name: "number", Label: "Number", Rules: "required,max=32"},
			{Name: "client_id", Label: "Client ID", Rules: "required"},
			{Name: "amount", Label: "Amount", Rules: "required,numeric", Numeric: true},
			{Name: "status", Label: "Status", Rules: "required,oneof=draft sent paid overdue", Choices: []string{"draft", "sent", "paid", "overdue"}},
			{Name: "due_date", Label: "Due date", Rules: "omitempty,datetime=2006-01-02", Placeholder: "YYYY-MM-DD"},
		},
	},
	{
		Name: "booked-properties", Title: "Booked properties", Noun: "booking",
		Path: "booked-properties", CollectionKey: "properties", IDField: "id",
		PageSize:     6,
		SearchFields: []string{"name", "address", "city", "guest.name"},
		Columns: []Column{
			{Title: "Property", Path: "name", Width: 24},
			{Title: "City", Path: "city", Width: 14},
			{Title: "Check-in", Path: "check_in", Width: 10},
			{Title: "Check-out", Path: "check_out", Width: 10},
			{Title: "Guest", Path: "guest.name", Width: 20},
		},
		Deletable: true,
		Form: []FormField{
			{Name: "name", Label: "Property", Rules: "required,max=120"},
			{Name: "address", Label: "Address", Rules: "required,max=200"},
			{Name: "city", Label: "City", Rules: "required,max=80"},
			{Name: "check_in", Label: "Check-in", Rules: "required,datetime=2006-01-02", Placeholder: "YYYY-MM-DD"},
			{Name: "check_out", Label: "Check-out", Rules: "required,datetime=2006-01-02", Placeholder: "YYYY-MM-DD"},
		},
	},
	{
		Name: "folders", Title: "Folders", Noun: "folder",
		Path: "folders", CollectionKey: "folders", IDField: "id",
		PageSize:     9,
		SearchFields: []string{"name", "description"},
		Columns: []Column{
			{Title: "Name", Path: "name", Width: 28},
			{Title: "Documents", Path: "document_count", Width: 9},
			{Title: "Updated", Path: "updated_at", Width: 20},
		},
		RequiresToken: true,
		Scope:         ScopeUser,
		ScopeField:    "owner_id",
		Child:         "documents",
		Deletable:     true,
		Form: []FormField{
			{Name: "name", Label: "Name", Rules: "required,max=80"},
			{Name: "description", Label: "Description", Rules: "omitempty,max=500"},
		},
	},
	{
		Name: "documents", Title: "Documents", Noun: "document",
		Path: "documents", CollectionKey: "documents", IDField: "id",
		PageSize:     9,
		SearchFields: []string{"title", "file_name", "uploaded_by.name"},
		Columns: []Column{
			{Title: "Title", Path: "title", Width: 28},
			{Title: "File", Path: "file_name", Width: 24},
			{Title: "Uploaded", Path: "created_at", Width: 20},
		},
		RequiresToken: true,
		Scope:         ScopeParent,
		Parent:        "folders",
		ScopeField:    "folder_id",
		Deletable:     true,
		Form: []FormField{
			{Name: "folder_id", Label: "Folder ID", Rules: "required"},
			{Name: "title", Label: "Title", Rules: "required,max=160"},
			{Name: "file_name", Label: "File name", Rules: "required,max=200"},
			{Name: "url", Label: "URL", Rules: "required,url"},
		},
	},
	{
		Name: "admins", Title: "Admins", Noun: "admin",
		Path: "admins", CollectionKey: "admins", IDField: "id",
		PageSize:     8,
		SearchFields: []string{"name", "email", "role"},
		Columns: []Column{
			{Title: "Name", Path: "name", Width: 24},
			{Title: "Email", Path: "email", Width: 30},
			{Title: "Role", Path: "role", Width: 12},
		},
		RequiresToken: true,
		Deletable:     true,
		Form: []FormField{
			{Name: "name", Label: "Name", Rules: "required,max=120"},
			{Name: "email", Label: "Email", Rules: "required,email"},
			{Name: "role", Label: "Role", Rules: "required,oneof=staff admin superadmin", Choices: []string{"staff", "admin", "superadmin"}},
		},
	},
}

// All returns every resource in display order.
func All() []Resource {
	return append([]Resource(nil), resources...)
}

// TopLevel returns the resources that can be opened directly.
func TopLevel() []Resource {
	var out []Resource
	for _, r := range resources {
		if r.TopLevel() {
			out = append(out, r)
		}
	}
	return out
}

// Lookup finds a resource by name.
func Lookup(name string) (Resource, bool) {
	for _, r := range resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// Names returns every resource name, sorted.
func Names() []string {
	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = r.Name
	}
	sort.Strings(names)
	return names
}
