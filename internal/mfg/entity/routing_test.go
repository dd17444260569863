package entity

import "testing"

func TestRoutingRecalculateTotals(t *testing.T) {
	r := Routing{
		Operations: []RoutingOperation{
			{Sequence: 10, SetupTime: 10, RunTimePerUnit: 30, CostPerUnit: 1.5},
			{Sequence: 20, SetupTime: 15, RunTimePerUnit: 45, CostPerUnit: 2.5},
		},
		BatchSize: 1,
	}
	r.RecalculateTotals()

	if r.TotalSetupTime != 25 {
		t.Errorf("TotalSetupTime = %v, want 25", r.TotalSetupTime)
	}
	if r.TotalRunTimePerUnit != 75 {
		t.Errorf("TotalRunTimePerUnit = %v, want 75", r.TotalRunTimePerUnit)
	}
	// batchSize=1 时准备时间全部计入单件
	if r.TotalTimePerUnit != 100 {
		t.Errorf("TotalTimePerUnit = %v, want 100", r.TotalTimePerUnit)
	}
	if r.TotalCostPerUnit != 4 {
		t.Errorf("TotalCostPerUnit = %v, want 4", r.TotalCostPerUnit)
	}
	if r.TotalOperations != 2 {
		t.Errorf("TotalOperations = %v, want 2", r.TotalOperations)
	}
}

func TestRoutingBatchAmortization(t *testing.T) {
	r := Routing{
		Operations: []RoutingOperation{
			{SetupTime: 60, RunTimePerUnit: 5, TeardownTime: 30},
		},
		BatchSize: 10,
	}
	r.RecalculateTotals()

	// 60/10 + 5 + 30/10 = 14
	if r.TotalTimePerUnit != 14 {
		t.Errorf("TotalTimePerUnit = %v, want 14", r.TotalTimePerUnit)
	}
}

func TestRoutingDefaultBatchSize(t *testing.T) {
	r := Routing{
		Operations: []RoutingOperation{{SetupTime: 10, RunTimePerUnit: 2}},
		BatchSize:  0,
	}
	r.RecalculateTotals()
	if r.BatchSize != 1 {
		t.Errorf("BatchSize = %v, want defaulted to 1", r.BatchSize)
	}
	if r.TotalTimePerUnit != 12 {
		t.Errorf("TotalTimePerUnit = %v, want 12", r.TotalTimePerUnit)
	}
}

func TestRoutingRecalculateResetsTotals(t *testing.T) {
	r := Routing{
		Operations: []RoutingOperation{{SetupTime: 5, RunTimePerUnit: 1, CostPerUnit: 2}},
		BatchSize:  1,
	}
	r.RecalculateTotals()

	// 移除工序后重算应归零而非累加
	r.Operations = nil
	r.RecalculateTotals()
	if r.TotalSetupTime != 0 || r.TotalRunTimePerUnit != 0 || r.TotalCostPerUnit != 0 || r.TotalOperations != 0 {
		t.Errorf("totals not reset: %+v", r)
	}
}
