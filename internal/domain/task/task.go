package task

import "encoding/json"

type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task any) ([]byte, error) {
	return json.Marshal(task)
}

// UnmarshalTask decodes task data into a freshly allocated T.
func UnmarshalTask[T any](data []byte) (*T, error) {
	t := new(T)
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}
