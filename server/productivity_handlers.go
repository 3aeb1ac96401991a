package server

import (
	"net/http"

	"github.com/jrsteele09/go-assistant-gateway/intent"
	"github.com/jrsteele09/go-assistant-gateway/productivity"
)

type createEventResponse struct {
	Success bool `json:"success"`
	*productivity.CreatedEvent
}

type createTaskResponse struct {
	Success bool `json:"success"`
	*productivity.CreatedTask
}

type listEventsResponse struct {
	Success bool                        `json:"success"`
	Events  []productivity.EventSummary `json:"events"`
}

type listTasksResponse struct {
	Success bool                       `json:"success"`
	Tasks   []productivity.TaskSummary `json:"tasks"`
}

type commandRequest struct {
	Command string `json:"command"`
}

// CreateEventHandler inserts an event into the user's primary calendar.
func (s *Server) CreateEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in productivity.EventInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		// Validate before a client is built so bad input never reaches Google.
		if _, err := productivity.BuildEvent(in); err != nil {
			writeError(w, r, err)
			return
		}

		client, err := s.calendarClient(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		created, err := productivity.CreateEvent(r.Context(), client, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, createEventResponse{Success: true, CreatedEvent: created})
	}
}

func (s *Server) CreateTaskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in productivity.TaskInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := productivity.BuildTask(in); err != nil {
			writeError(w, r, err)
			return
		}

		client, err := s.tasksClient(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		created, err := productivity.CreateTask(r.Context(), client, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, createTaskResponse{Success: true, CreatedTask: created})
	}
}

// ListEventsHandler returns the next seven days of the primary calendar.
func (s *Server) ListEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, err := s.calendarClient(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		events, err := productivity.UpcomingEvents(r.Context(), client, s.now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listEventsResponse{Success: true, Events: events})
	}
}

func (s *Server) ListTasksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, err := s.tasksClient(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tasks, err := productivity.OpenTasks(r.Context(), client)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listTasksResponse{Success: true, Tasks: tasks})
	}
}

// ProcessCommandHandler classifies free text into an intent descriptor. It
// makes no downstream call.
func (s *Server) ProcessCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commandRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, intent.Classify(req.Command))
	}
}

func (s *Server) calendarClient(r *http.Request) (productivity.CalendarClient, error) {
	live, err := credentialFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	return s.services.Calendar(r.Context(), live)
}

func (s *Server) tasksClient(r *http.Request) (productivity.TasksClient, error) {
	live, err := credentialFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	return s.services.Tasks(r.Context(), live)
}
