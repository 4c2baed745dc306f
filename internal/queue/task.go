package queue

import (
	"errors"
	"fmt"
)

const (
	TaskContactNotify  = "contact.notify"
	TaskUploadIngest   = "upload.ingest"
	TaskUploadsCleanup = "uploads.cleanup"
)

var ErrMissingType = errors.New("task has no type")

// Task is one unit of background work. Stream entries are flat string maps,
// so Data holds only string values.
type Task struct {
	Type string
	Ref  string
	Data map[string]string
}

func (t Task) values() map[string]any {
	out := make(map[string]any, len(t.Data)+2)
	for k, v := range t.Data {
		out[k] = v
	}
	out["type"] = t.Type
	if t.Ref != "" {
		out["ref"] = t.Ref
	}
	return out
}

// DecodeTask rebuilds a Task from stream entry values.
func DecodeTask(values map[string]any) (Task, error) {
	var task Task
	for k, raw := range values {
		v, ok := raw.(string)
		if !ok {
			v = fmt.Sprint(raw)
		}
		switch k {
		case "type":
			task.Type = v
		case "ref":
			task.Ref = v
		default:
			if task.Data == nil {
				task.Data = make(map[string]string)
			}
			task.Data[k] = v
		}
	}
	if task.Type == "" {
		return Task{}, ErrMissingType
	}
	return task, nil
}
