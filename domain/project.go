package domain

import "time"

type Project struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ContractValue  float64         `json:"contractValue"`
	CustomSchedule bool            `json:"customSchedule"`
	Schedule       PaymentSchedule `json:"schedule"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type ProjectInput struct {
	Name          string  `json:"name"`
	ContractValue float64 `json:"contractValue"`
}

// ProjectSchedule is the schedule in effect for a project together with
// its computed amounts.
type ProjectSchedule struct {
	ProjectID      string          `json:"projectId"`
	CustomSchedule bool            `json:"customSchedule"`
	Schedule       PaymentSchedule `json:"schedule"`
	Result         ScheduleResult  `json:"result"`
}
