package productivity

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/internal/utils"
	"google.golang.org/api/tasks/v1"
)

const (
	// PreferredTaskList is the list title tasks are read from when it exists.
	PreferredTaskList = "Mis tareas"
	DefaultTaskList   = "@default"

	taskStatusCompleted = "completed"
)

type TasksClient interface {
	ListTaskLists(ctx context.Context) ([]*tasks.TaskList, error)
	InsertTask(ctx context.Context, taskListID string, task *tasks.Task) (*tasks.Task, error)
	// ListOpenTasks returns tasks that are neither completed nor hidden.
	ListOpenTasks(ctx context.Context, taskListID string) ([]*tasks.Task, error)
}

// ResolveTaskList picks the list whose title is exactly PreferredTaskList
// and falls back to the user's default list.
func ResolveTaskList(lists []*tasks.TaskList) string {
	for _, l := range lists {
		if l != nil && l.Title == PreferredTaskList {
			return l.Id
		}
	}
	return DefaultTaskList
}

// TaskInput is the body accepted by the create-task endpoint.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
}

// BuildTask validates in and shapes the task to insert. DueDate is sent to
// Google exactly as received.
func BuildTask(in TaskInput) (*tasks.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.Validation("el campo 'title' es obligatorio")
	}
	return &tasks.Task{
		Title: in.Title,
		Notes: in.Description,
		Due:   in.DueDate,
	}, nil
}

// TaskSummary is the normalized view of an open task.
type TaskSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Due       *string `json:"due"`
	Completed bool    `json:"completed"`
}

func SummarizeTask(t *tasks.Task) TaskSummary {
	s := TaskSummary{
		ID:        t.Id,
		Title:     t.Title,
		Completed: t.Status == taskStatusCompleted,
	}
	if t.Due != "" {
		s.Due = utils.Ptr(t.Due)
	}
	return s
}

type CreatedTask struct {
	ID      string `json:"taskId"`
	Message string `json:"message"`
}

// CreateTask inserts the task described by in into the resolved task list.
func CreateTask(ctx context.Context, client TasksClient, in TaskInput) (*CreatedTask, error) {
	task, err := BuildTask(in)
	if err != nil {
		return nil, err
	}
	listID, err := resolveList(ctx, client)
	if err != nil {
		return nil, err
	}
	created, err := client.InsertTask(ctx, listID, task)
	if err != nil {
		return nil, MapError(err, "no se pudo crear la tarea")
	}
	return &CreatedTask{
		ID:      created.Id,
		Message: fmt.Sprintf("Tarea '%s' creada exitosamente", in.Title),
	}, nil
}

// OpenTasks lists the incomplete, visible tasks of the resolved task list.
func OpenTasks(ctx context.Context, client TasksClient) ([]TaskSummary, error) {
	listID, err := resolveList(ctx, client)
	if err != nil {
		return nil, err
	}
	items, err := client.ListOpenTasks(ctx, listID)
	if err != nil {
		return nil, MapError(err, "no se pudieron obtener las tareas")
	}
	out := make([]TaskSummary, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, SummarizeTask(item))
	}
	return out, nil
}

func resolveList(ctx context.Context, client TasksClient) (string, error) {
	lists, err := client.ListTaskLists(ctx)
	if err != nil {
		return "", MapError(err, "no se pudieron obtener las listas de tareas")
	}
	return ResolveTaskList(lists), nil
}

type tasksClient struct {
	svc *tasks.Service
}

func (c *tasksClient) ListTaskLists(ctx context.Context) ([]*tasks.TaskList, error) {
	resp, err := c.svc.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *tasksClient) InsertTask(ctx context.Context, taskListID string, task *tasks.Task) (*tasks.Task, error) {
	return c.svc.Tasks.Insert(taskListID, task).Context(ctx).Do()
}

func (c *tasksClient) ListOpenTasks(ctx context.Context, taskListID string) ([]*tasks.Task, error) {
	resp, err := c.svc.Tasks.List(taskListID).
		ShowCompleted(false).
		ShowHidden(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
