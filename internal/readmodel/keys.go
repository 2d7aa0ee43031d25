package readmodel

import "github.com/google/uuid"

// Cache keys are derived from aggregate or user ids so writers know exactly
// what to invalidate.

func TeeTimeKey(id uuid.UUID) string {
	return "teetime:" + id.String()
}

func DashboardKey(userID uuid.UUID) string {
	return "dash:" + userID.String()
}
