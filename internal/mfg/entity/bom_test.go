package entity

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBOMItemRecalculate(t *testing.T) {
	tests := []struct {
		name            string
		quantity        float64
		scrapPercentage float64
		unitCost        float64
		wantNet         float64
		wantTotal       float64
	}{
		{"无损耗", 10, 0, 2, 10, 20},
		{"10%损耗", 5, 10, 2, 5.5, 11},
		{"零单价", 3, 5, 0, 3.15, 0},
		{"小数数量", 0.5, 20, 4, 0.6, 2.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := BOMItem{
				Quantity:        tt.quantity,
				ScrapPercentage: tt.scrapPercentage,
				UnitCost:        tt.unitCost,
			}
			item.Recalculate()
			if !almostEqual(item.NetQuantity, tt.wantNet) {
				t.Errorf("NetQuantity = %v, want %v", item.NetQuantity, tt.wantNet)
			}
			if !almostEqual(item.TotalCost, tt.wantTotal) {
				t.Errorf("TotalCost = %v, want %v", item.TotalCost, tt.wantTotal)
			}
		})
	}
}

func TestBOMApplyCostRollup(t *testing.T) {
	// FG-100 成品，配方产出1件，PART-A 用量5、损耗10%、单价2.00
	partA := BOMItem{
		ItemCode:        "PART-A",
		Quantity:        5,
		ScrapPercentage: 10,
		UnitCost:        2.00,
	}
	partA.Recalculate()

	bom := BOM{
		ItemCode:      "FG-100",
		Quantity:      1,
		OperationCost: 3,
		OverheadCost:  1,
		Items:         []BOMItem{partA},
	}
	now := time.Now()
	bom.ApplyCostRollup(now)

	if !almostEqual(bom.MaterialCost, 11.00) {
		t.Errorf("MaterialCost = %v, want 11.00", bom.MaterialCost)
	}
	if !almostEqual(bom.TotalCost, 15.00) {
		t.Errorf("TotalCost = %v, want 15.00", bom.TotalCost)
	}
	if !almostEqual(bom.CostPerUnit, 15.00) {
		t.Errorf("CostPerUnit = %v, want 15.00", bom.CostPerUnit)
	}
	if bom.LastCostRollupDate == nil || !bom.LastCostRollupDate.Equal(now) {
		t.Errorf("LastCostRollupDate not stamped")
	}
}

func TestBOMApplyCostRollupIdempotent(t *testing.T) {
	item := BOMItem{Quantity: 2, ScrapPercentage: 5, UnitCost: 3}
	item.Recalculate()
	bom := BOM{Quantity: 10, Items: []BOMItem{item}}

	bom.ApplyCostRollup(time.Now())
	first := bom.TotalCost
	perUnit := bom.CostPerUnit

	// 同一输入重复执行结果不变
	bom.ApplyCostRollup(time.Now())
	if !almostEqual(bom.TotalCost, first) || !almostEqual(bom.CostPerUnit, perUnit) {
		t.Errorf("rollup not idempotent: got total=%v perUnit=%v, want %v %v",
			bom.TotalCost, bom.CostPerUnit, first, perUnit)
	}
}

func TestBOMApplyCostRollupZeroQuantity(t *testing.T) {
	bom := BOM{Quantity: 0, OperationCost: 5}
	bom.ApplyCostRollup(time.Now())
	if bom.CostPerUnit != 0 {
		t.Errorf("CostPerUnit = %v, want 0 when quantity is 0", bom.CostPerUnit)
	}
}

func TestBOMEditable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{BOMStatusDraft, true},
		{BOMStatusSubmitted, false},
		{BOMStatusActive, false},
		{BOMStatusInactive, false},
		{BOMStatusObsolete, false},
	}
	for _, tt := range tests {
		bom := BOM{Status: tt.status}
		if got := bom.Editable(); got != tt.want {
			t.Errorf("Editable() with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
