package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCRMPushRetry = "crm.push.retry"

// CRMPushRetryPayload carries everything needed to re-push a lead to
// the CRM without the original dispatch context.
type CRMPushRetryPayload struct {
	LeadID         string   `json:"leadId"`
	OrganizationID string   `json:"organizationId"`
	Source         string   `json:"source"`
	Tags           []string `json:"tags,omitempty"`
	Attempt        int      `json:"attempt"`
}

func NewCRMPushRetryTask(payload CRMPushRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCRMPushRetry, data), nil
}

func ParseCRMPushRetryPayload(task *asynq.Task) (CRMPushRetryPayload, error) {
	var payload CRMPushRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CRMPushRetryPayload{}, err
	}
	return payload, nil
}
