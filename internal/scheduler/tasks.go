package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskQuotationExpire = "quotations.expire"

type QuotationExpirePayload struct {
	QuotationID string `json:"quotationId"`
}

func NewQuotationExpireTask(payload QuotationExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationExpire, data), nil
}

func ParseQuotationExpirePayload(task *asynq.Task) (QuotationExpirePayload, error) {
	var payload QuotationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QuotationExpirePayload{}, err
	}
	return payload, nil
}
