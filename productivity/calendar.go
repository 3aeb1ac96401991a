package productivity

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"google.golang.org/api/calendar/v3"
)

const (
	// PrimaryCalendar is the calendar every event is read from and written to.
	PrimaryCalendar = "primary"

	// EventTimeZone is attached to the start and end of every created event.
	EventTimeZone = "America/Mexico_City"

	UntitledEvent = "Sin título"

	upcomingWindow    = 7 * 24 * time.Hour
	upcomingMaxEvents = 10

	naiveDateTime = "2006-01-02T15:04:05"
	isoDate       = "2006-01-02"
)

type CalendarClient interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	ListEvents(ctx context.Context, calendarID string, window Window) ([]*calendar.Event, error)
}

// Window is the time range and paging used when listing events.
type Window struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int64
}

// EventWindow returns the listing window for upcoming events: the next seven
// days from now, at most ten events.
func EventWindow(now time.Time) Window {
	now = now.UTC()
	return Window{
		TimeMin:    now,
		TimeMax:    now.Add(upcomingWindow),
		MaxResults: upcomingMaxEvents,
	}
}

// EventInput is the body accepted by the create-event endpoint.
type EventInput struct {
	Title       string `json:"title"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description"`
}

// BuildEvent validates in and shapes the calendar event to insert. Times may
// carry an offset or be naive; either way the event is labelled with
// EventTimeZone.
func BuildEvent(in EventInput) (*calendar.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation("el campo 'title' es obligatorio")
	}
	start, err := normalizeDateTime("startTime", in.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := normalizeDateTime("endTime", in.EndTime)
	if err != nil {
		return nil, err
	}

	return &calendar.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: start, TimeZone: EventTimeZone},
		End:         &calendar.EventDateTime{DateTime: end, TimeZone: EventTimeZone},
	}, nil
}

// normalizeDateTime accepts timestamps with or without an offset, separated
// by "T" or a space. A bare date means midnight.
func normalizeDateTime(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperrors.Validation(fmt.Sprintf("el campo '%s' es obligatorio", field))
	}
	if len(value) > len(isoDate) && value[len(isoDate)] == ' ' {
		value = value[:len(isoDate)] + "T" + value[len(isoDate)+1:]
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format(time.RFC3339), nil
	}
	for _, layout := range []string{naiveDateTime, "2006-01-02T15:04", isoDate} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(naiveDateTime), nil
		}
	}
	return "", apperrors.Validation(fmt.Sprintf("el campo '%s' no es una fecha ISO 8601 válida", field))
}

// EventSummary is the normalized view of an upcoming event.
type EventSummary struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// SummarizeEvent uses the timed start and end when present and the all-day
// date otherwise.
func SummarizeEvent(ev *calendar.Event) EventSummary {
	summary := ev.Summary
	if summary == "" {
		summary = UntitledEvent
	}
	return EventSummary{
		ID:      ev.Id,
		Summary: summary,
		Start:   eventTime(ev.Start),
		End:     eventTime(ev.End),
	}
}

func eventTime(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}

// CreatedEvent is what the gateway reports after inserting an event.
type CreatedEvent struct {
	ID       string `json:"eventId"`
	HTMLLink string `json:"htmlLink"`
	Message  string `json:"message"`
}

// CreateEvent inserts the event described by in into the primary calendar.
func CreateEvent(ctx context.Context, client CalendarClient, in EventInput) (*CreatedEvent, error) {
	event, err := BuildEvent(in)
	if err != nil {
		return nil, err
	}
	created, err := client.InsertEvent(ctx, PrimaryCalendar, event)
	if err != nil {
		return nil, MapError(err, "no se pudo crear el evento")
	}
	return &CreatedEvent{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
		Message:  fmt.Sprintf("Evento '%s' creado exitosamente", in.Title),
	}, nil
}

// UpcomingEvents lists the primary calendar's events for the next week.
func UpcomingEvents(ctx context.Context, client CalendarClient, now time.Time) ([]EventSummary, error) {
	items, err := client.ListEvents(ctx, PrimaryCalendar, EventWindow(now))
	if err != nil {
		return nil, MapError(err, "no se pudieron obtener los eventos")
	}
	events := make([]EventSummary, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, SummarizeEvent(item))
	}
	return events, nil
}

type calendarClient struct {
	svc *calendar.Service
}

func (c *calendarClient) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
}

func (c *calendarClient) ListEvents(ctx context.Context, calendarID string, window Window) ([]*calendar.Event, error) {
	resp, err := c.svc.Events.List(calendarID).
		TimeMin(window.TimeMin.Format(time.RFC3339)).
		TimeMax(window.TimeMax.Format(time.RFC3339)).
		MaxResults(window.MaxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
