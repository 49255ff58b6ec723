package queue

type TaskType string

// TaskTypeFactChange is the only task carried on the inbound stream today.
const TaskTypeFactChange TaskType = "fact_change"
