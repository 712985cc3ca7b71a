package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCorrectionRetry = "attribution.correction.retry"

// correctionRetryMaxAttempts bounds how often a deferred correction is
// retried. Attribution snapshots expire, so retrying forever is pointless.
const correctionRetryMaxAttempts = 5

type CorrectionRetryPayload struct {
	ContactID string `json:"contactId"`
	Email     string `json:"email"`
	// TriggerEvent is the webhook event type that requested the
	// correction, kept for the audit trail.
	TriggerEvent string `json:"triggerEvent,omitempty"`
}

func NewCorrectionRetryTask(payload CorrectionRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCorrectionRetry, data), nil
}

func ParseCorrectionRetryPayload(task *asynq.Task) (CorrectionRetryPayload, error) {
	var payload CorrectionRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CorrectionRetryPayload{}, err
	}
	return payload, nil
}
