package model

// TaskStatus represents the status of a tracked task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but not started
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusRunning means the task is in progress
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusSuccess means the task finished successfully
	TaskStatusSuccess TaskStatus = "success"

	// TaskStatusError means the task failed with an error
	TaskStatusError TaskStatus = "error"

	// TaskStatusCancelled means the task was cancelled by user
	TaskStatusCancelled TaskStatus = "cancelled"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task still counts as in-flight work
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusPending || ts == TaskStatusRunning
}

// IsFinished returns true if the task is in a terminal state (success, error, or cancelled)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusSuccess || ts == TaskStatusError || ts == TaskStatusCancelled
}

// IsCompleted returns true for the statuses swept by "clear completed" (success or error)
func (ts TaskStatus) IsCompleted() bool {
	return ts == TaskStatusSuccess || ts == TaskStatusError
}
