// Package intent maps a free-text Spanish command onto one of the actions the
// assistant can perform.
package intent

import (
	"strings"

	"github.com/jrsteele09/go-assistant-gateway/internal/utils"
)

type Action string

const (
	ActionCreateEvent Action = "create_event"
	ActionCreateTask  Action = "create_task"
	ActionListEvents  Action = "list_events"
	ActionListTasks   Action = "list_tasks"
	ActionUnknown     Action = "unknown"
)

// Example is a sample request body for the action's endpoint.
type Example struct {
	Title       string `json:"title"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// Descriptor is the result of classifying a command.
type Descriptor struct {
	Action  Action   `json:"action"`
	Message string   `json:"message"`
	Example *Example `json:"example,omitempty"`
}

type rule struct {
	phrases    []string
	descriptor Descriptor
}

// Rules are tried in order and the first rule with a matching phrase wins.
var rules = []rule{
	{
		phrases: []string{"crear evento", "agendar", "reunión", "cita"},
		descriptor: Descriptor{
			Action:  ActionCreateEvent,
			Message: "Para crear un evento, necesito: título, fecha/hora de inicio y fecha/hora de fin.",
			Example: &Example{
				Title:       "Reunión de equipo",
				StartTime:   "2026-01-15T10:00:00Z",
				EndTime:     "2026-01-15T11:00:00Z",
				Description: "Discutir el proyecto JARVIS",
			},
		},
	},
	{
		phrases: []string{"crear tarea", "añadir tarea", "recordatorio"},
		descriptor: Descriptor{
			Action:  ActionCreateTask,
			Message: "Para crear una tarea, necesito el título y opcionalmente una fecha de vencimiento.",
			Example: &Example{
				Title:   "Revisar documentación",
				DueDate: "2026-01-20T00:00:00Z",
			},
		},
	},
	{
		phrases: []string{"ver eventos", "listar eventos", "qué tengo agendado"},
		descriptor: Descriptor{
			Action:  ActionListEvents,
			Message: "Obteniendo tus próximos eventos...",
		},
	},
	{
		phrases: []string{"ver tareas", "listar tareas", "qué pendientes tengo"},
		descriptor: Descriptor{
			Action:  ActionListTasks,
			Message: "Obteniendo tus tareas pendientes...",
		},
	},
}

var unknown = Descriptor{
	Action:  ActionUnknown,
	Message: "No reconozco ese comando. Puedo ayudarte con: crear eventos, crear tareas, ver eventos o ver tareas.",
}

// Classify lowercases text and returns the descriptor of the first rule with
// a phrase contained in it.
func Classify(text string) Descriptor {
	command := strings.ToLower(text)
	for _, r := range rules {
		for _, phrase := range r.phrases {
			if strings.Contains(command, phrase) {
				return r.descriptor.clone()
			}
		}
	}
	return unknown
}

func (d Descriptor) clone() Descriptor {
	if d.Example != nil {
		d.Example = utils.Ptr(utils.Value(d.Example))
	}
	return d
}
