package models

// DashboardStats summarizes the procurement dataset for the stats endpoint.
type DashboardStats struct {
	TotalBudget        float64 `json:"totalBudget"`
	TotalProjects      int     `json:"totalProjects"`
	HighRiskProjects   int     `json:"highRiskProjects"`
	AverageBudget      float64 `json:"averageBudget"`
	DepartmentCount    int     `json:"departmentCount"`
	CompletedProjects  int     `json:"completedProjects"`
	InProgressProjects int     `json:"inProgressProjects"`
	DelayedProjects    int     `json:"delayedProjects"`
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status      string `json:"status"`
	RecordCount int    `json:"recordCount"`
	Timestamp   string `json:"timestamp"`
}

// API error envelope.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
