package entity

import "testing"

func TestWorkOrderTransitions(t *testing.T) {
	allStatuses := []string{
		WOStatusDraft, WOStatusSubmitted, WOStatusReleased, WOStatusInProgress,
		WOStatusOnHold, WOStatusCompleted, WOStatusClosed, WOStatusCancelled,
	}

	allowed := map[[2]string]bool{
		{WOStatusDraft, WOStatusSubmitted}:      true,
		{WOStatusDraft, WOStatusCancelled}:      true,
		{WOStatusSubmitted, WOStatusReleased}:   true,
		{WOStatusSubmitted, WOStatusCancelled}:  true,
		{WOStatusReleased, WOStatusInProgress}:  true,
		{WOStatusReleased, WOStatusCancelled}:   true,
		{WOStatusInProgress, WOStatusOnHold}:    true,
		{WOStatusInProgress, WOStatusCompleted}: true,
		{WOStatusInProgress, WOStatusCancelled}: true,
		{WOStatusOnHold, WOStatusInProgress}:    true,
		{WOStatusOnHold, WOStatusCancelled}:     true,
		{WOStatusCompleted, WOStatusClosed}:     true,
	}

	// 全量枚举：表内转移允许，其余一律拒绝
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]string{from, to}]
			if got := CanTransitionWO(from, to); got != want {
				t.Errorf("CanTransitionWO(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestWorkOrderTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{WOStatusClosed, true},
		{WOStatusCancelled, true},
		{WOStatusDraft, false},
		{WOStatusCompleted, false},
		{WOStatusInProgress, false},
	}
	for _, tt := range tests {
		if got := WorkOrderTerminal(tt.status); got != tt.want {
			t.Errorf("WorkOrderTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestWorkOrderRecalculateProgress(t *testing.T) {
	wo := WorkOrder{PlannedQuantity: 100, ProducedQuantity: 40}
	wo.RecalculateProgress()
	if wo.PendingQuantity != 60 {
		t.Errorf("PendingQuantity = %v, want 60", wo.PendingQuantity)
	}
	if wo.ProgressPercentage != 40 {
		t.Errorf("ProgressPercentage = %v, want 40", wo.ProgressPercentage)
	}
}

func TestWorkOrderRecalculateProgressZeroPlanned(t *testing.T) {
	wo := WorkOrder{PlannedQuantity: 0, ProducedQuantity: 5}
	wo.RecalculateProgress()
	if wo.ProgressPercentage != 0 {
		t.Errorf("ProgressPercentage = %v, want 0 when planned is 0", wo.ProgressPercentage)
	}
}

func TestWorkOrderEditable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{WOStatusDraft, true},
		{WOStatusSubmitted, true},
		{WOStatusReleased, true},
		{WOStatusInProgress, true},
		{WOStatusOnHold, true},
		{WOStatusCompleted, false},
		{WOStatusClosed, false},
	}
	for _, tt := range tests {
		wo := WorkOrder{Status: tt.status}
		if got := wo.Editable(); got != tt.want {
			t.Errorf("Editable() with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
