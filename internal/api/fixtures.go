package api

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

// Envelope is the payload shape the server wraps a collection in.
type Envelope string

const (
	EnvelopeBare    Envelope = "bare"    // [ ... ]
	EnvelopeData    Envelope = "data"    // {"success": true, "data": [ ... ]}
	EnvelopeKey     Envelope = "key"     // {"success": true, "<key>": [ ... ]}
	EnvelopeFailure Envelope = "failure" // {"success": false, "message": ...}
)

func (e Envelope) valid() bool {
	switch e {
	case "", EnvelopeBare, EnvelopeData, EnvelopeKey, EnvelopeFailure:
		return true
	}
	return false
}

// FixtureResource seeds one collection.
type FixtureResource struct {
	Envelope    Envelope          `json:"envelope"`
	FailDeletes bool              `json:"fail_deletes"`
	Records     []json.RawMessage `json:"records"`
}

// Fixtures is the seed document for the fixture server.
type Fixtures struct {
	// Sessions maps accepted bearer tokens to the user id they sign in.
	Sessions  map[string]string          `json:"sessions"`
	Resources map[string]FixtureResource `json:"resources"`
}

// LoadFixtures reads a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// DevToken and DevUserID are the session DefaultFixtures signs in.
const (
	DevToken  = "dev-token"
	DevUserID = "1"
)

// DefaultFixtures returns a deterministic demo data set covering every
// resource, large enough to page through.
func DefaultFixtures() *Fixtures {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	day := func(n int) string { return base.AddDate(0, 0, n).Format("2006-01-02") }
	stamp := func(n int) string { return base.Add(time.Duration(n) * time.Hour).Format(time.RFC3339) }

	companies := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark", "Wayne", "Wonka"}
	first := []string{"Ada", "Grace", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances", "Edsger", "Radia", "Tim"}
	last := []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen", "Dijkstra", "Perlman", "Berners-Lee"}
	cities := []string{"Lisbon", "Porto", "Madrid", "Berlin", "Vienna", "Prague"}

	name := func(i int) string { return first[i%len(first)] + " " + last[(i*7)%len(last)] }
	email := func(i int, domain string) string { return fmt.Sprintf("user%02d@%s.test", i, domain) }

	var clients, users, jobs, invoices, props, folders, docs, admins []any

	for i := 1; i <= 23; i++ {
		company := companies[i%len(companies)]
		clients = append(clients, map[string]any{
			"id": i, "name": name(i), "email": email(i, "clients"),
			"company": company, "phone": fmt.Sprintf("+351 21 000 %04d", i),
		})
		for j := 1; j <= 1+i%4; j++ {
			uid := i*10 + j
			users = append(users, map[string]any{
				"id": uid, "client_id": strconv.Itoa(i), "name": name(uid),
				"email": email(uid, "client-users"), "role": []string{"owner", "manager", "member"}[j%3],
			})
		}
	}
	statuses := []string{"open", "assigned", "completed", "cancelled"}
	for i := 1; i <= 37; i++ {
		jobs = append(jobs, map[string]any{
			"id": i, "title": fmt.Sprintf("Shift cover #%03d", i),
			"client_id": strconv.Itoa(1 + i%23), "client": map[string]any{"name": name(1 + i%23)},
			"status": statuses[i%len(statuses)], "location": cities[i%len(cities)], "start_date": day(i),
		})
	}
	invStatuses := []string{"draft", "sent", "paid", "overdue"}
	for i := 1; i <= 14; i++ {
		invoices = append(invoices, map[string]any{
			"id": i, "number": fmt.Sprintf("INV-%04d", 1000+i),
			"client_id": strconv.Itoa(1 + i%23), "client": map[string]any{"name": name(1 + i%23)},
			"amount": json.Number(fmt.Sprintf("%d.%02d", 120+i*37, (i*13)%100)),
			"status": invStatuses[i%len(invStatuses)], "due_date": day(30 + i),
		})
	}
	for i := 1; i <= 9; i++ {
		props = append(props, map[string]any{
			"id": i, "name": fmt.Sprintf("%s Suites %d", cities[i%len(cities)], i),
			"address": fmt.Sprintf("%d Rua Augusta", 10+i), "city": cities[i%len(cities)],
			"check_in": day(i * 2), "check_out": day(i*2 + 3),
			"guest": map[string]any{"name": name(i + 3)},
		})
	}
	for i := 1; i <= 12; i++ {
		owner := DevUserID
		if i > 10 {
			owner = "2"
		}
		folders = append(folders, map[string]any{
			"id": i, "owner_id": owner, "name": fmt.Sprintf("Folder %02d", i),
			"description": "Contracts and onboarding", "document_count": i % 5, "updated_at": stamp(i),
		})
		for j := 1; j <= i%5; j++ {
			did := i*10 + j
			docs = append(docs, map[string]any{
				"id": did, "folder_id": strconv.Itoa(i), "title": fmt.Sprintf("Document %d-%d", i, j),
				"file_name": fmt.Sprintf("doc-%d-%d.pdf", i, j), "url": fmt.Sprintf("https://files.example.test/%d.pdf", did),
				"uploaded_by": map[string]any{"name": name(j)}, "created_at": stamp(i + j),
			})
		}
	}
	for i := 1; i <= 5; i++ {
		admins = append(admins, map[string]any{
			"id": i, "name": name(i + 20), "email": email(i, "staff"),
			"role": []string{"superadmin", "admin", "staff"}[i%3],
		})
	}

	return &Fixtures{
		Sessions: map[string]string{DevToken: DevUserID},
		Resources: map[string]FixtureResource{
			"clients":           {Envelope: EnvelopeKey, Records: raws(clients)},
			"client-users":      {Envelope: EnvelopeData, Records: raws(users)},
			"jobs":              {Envelope: EnvelopeData, Records: raws(jobs)},
			"invoices":          {Envelope: EnvelopeBare, Records: raws(invoices)},
			"booked-properties": {Envelope: EnvelopeKey, Records: raws(props)},
			"folders":           {Envelope: EnvelopeKey, Records: raws(folders)},
			"documents":         {Envelope: EnvelopeData, Records: raws(docs)},
			"admins":            {Envelope: EnvelopeData, FailDeletes: true, Records: raws(admins)},
		},
	}
}

func raws(items []any) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		out[i] = catalog.MustRecord(item).Raw()
	}
	return out
}
