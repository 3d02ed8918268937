package task

import "encoding/json"

type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

const (
	TypePageRetry = "PageRetryTask"
	TypeItemRetry = "ItemRetryTask"
)

// Types lists every task stream the queue must provision.
var Types = []string{TypePageRetry, TypeItemRetry}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task interface{}) ([]byte, error) {
	return json.Marshal(task)
}

func UnmarshalTask[T Task](task []byte) (T, error) {
	var t T
	err := json.Unmarshal(task, &t)
	return t, err
}
