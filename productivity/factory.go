// Package productivity talks to the user's Google Calendar and Google Tasks
// on their behalf, using a credential rebuilt from the session.
package productivity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-assistant-gateway/credential"
	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

const (
	ServiceCalendar = "calendar"
	ServiceTasks    = "tasks"

	CalendarVersion = "v3"
	TasksVersion    = "v1"

	// DefaultTimeout bounds every downstream call.
	DefaultTimeout = 30 * time.Second
)

// ServiceFactory builds typed downstream clients for a live credential.
type ServiceFactory interface {
	Calendar(ctx context.Context, cred *credential.Live) (CalendarClient, error)
	Tasks(ctx context.Context, cred *credential.Live) (TasksClient, error)
}

// Factory is the ServiceFactory backed by the Google API client libraries.
// Building a client never performs a network call.
type Factory struct {
	base     *http.Client
	endpoint string
}

var _ ServiceFactory = (*Factory)(nil)

type FactoryOption func(*Factory)

// WithEndpoint points every client at endpoint instead of Google.
func WithEndpoint(endpoint string) FactoryOption {
	return func(f *Factory) {
		f.endpoint = endpoint
	}
}

// WithBaseClient sets the client whose transport and timeout are used for
// downstream calls.
func WithBaseClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		f.base = c
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		base: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateService returns the client for the named API version:
// *calendar.Service for calendar/v3 and *tasks.Service for tasks/v1. Every
// client attaches cred's bearer token to its calls.
func (f *Factory) CreateService(ctx context.Context, name, version string, cred *credential.Live) (any, error) {
	if cred == nil {
		return nil, credential.ErrNotAuthenticated
	}

	opts := []option.ClientOption{option.WithHTTPClient(cred.HTTPClient(ctx, f.base))}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}

	switch {
	case name == ServiceCalendar && version == CalendarVersion:
		svc, err := calendar.NewService(ctx, opts...)
		if err != nil {
			return nil, apperrors.Unexpected("no se pudo crear el cliente de calendario", err)
		}
		return svc, nil
	case name == ServiceTasks && version == TasksVersion:
		svc, err := tasks.NewService(ctx, opts...)
		if err != nil {
			return nil, apperrors.Unexpected("no se pudo crear el cliente de tareas", err)
		}
		return svc, nil
	default:
		return nil, &apperrors.Error{
			Kind:    apperrors.KindConfiguration,
			Message: fmt.Sprintf("servicio no soportado: %s/%s", name, version),
			Err:     apperrors.ErrUnsupportedService,
		}
	}
}

func (f *Factory) Calendar(ctx context.Context, cred *credential.Live) (CalendarClient, error) {
	svc, err := f.CreateService(ctx, ServiceCalendar, CalendarVersion, cred)
	if err != nil {
		return nil, err
	}
	return &calendarClient{svc: svc.(*calendar.Service)}, nil
}

func (f *Factory) Tasks(ctx context.Context, cred *credential.Live) (TasksClient, error) {
	svc, err := f.CreateService(ctx, ServiceTasks, TasksVersion, cred)
	if err != nil {
		return nil, err
	}
	return &tasksClient{svc: svc.(*tasks.Service)}, nil
}
