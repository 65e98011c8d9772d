package infer

import (
	"context"

	"github.com/kbukum/inferstream/errors"
	"github.com/kbukum/inferstream/repair"
)

// TaskRepairer asks the server to fix malformed output by running a named
// task. It implements repair.Requester.
type TaskRepairer struct {
	client *Client
	task   string
}

var _ repair.Requester = (*TaskRepairer)(nil)

type taskRequest struct {
	Task        string `json:"task"`
	Prompt      string `json:"prompt"`
	Instruction string `json:"instruction,omitempty"`
}

// Task returns the server task name.
func (r *TaskRepairer) Task() string { return r.task }

// Repair sends text to the repair task and returns the text it answers with.
func (r *TaskRepairer) Repair(ctx context.Context, text, instruction string) (string, error) {
	if r.task == "" {
		return "", errors.InvalidInput("repair_task", "no repair task configured")
	}
	path := r.client.dialect.TaskPath()
	var out completionResponse
	err := r.client.postJSON(ctx, "repair task", path, taskRequest{
		Task:        r.task,
		Prompt:      text,
		Instruction: instruction,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}
