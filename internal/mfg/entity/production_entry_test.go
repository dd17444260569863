package entity

import "testing"

func TestProductionEntryRecalculateCosts(t *testing.T) {
	pe := ProductionEntry{
		Quantity: 10,
		ConsumedMaterials: []ConsumedMaterial{
			{ItemCode: "PART-A", Quantity: 55, UnitCost: 2},
			{ItemCode: "PART-B", Quantity: 10, UnitCost: 0.5},
		},
		LaborEntries: []LaborEntry{
			{Name: "张三", Hours: 4, Rate: 20},
			{Name: "李四", Hours: 2, Rate: 25},
		},
		OverheadCost: 15,
	}
	pe.RecalculateCosts()

	if pe.TotalMaterialCost != 115 {
		t.Errorf("TotalMaterialCost = %v, want 115", pe.TotalMaterialCost)
	}
	if pe.TotalLaborCost != 130 {
		t.Errorf("TotalLaborCost = %v, want 130", pe.TotalLaborCost)
	}
	if pe.TotalCost != 260 {
		t.Errorf("TotalCost = %v, want 260", pe.TotalCost)
	}
	if pe.CostPerUnit != 26 {
		t.Errorf("CostPerUnit = %v, want 26", pe.CostPerUnit)
	}

	// 行成本由重算填充
	if pe.ConsumedMaterials[0].TotalCost != 110 {
		t.Errorf("material line TotalCost = %v, want 110", pe.ConsumedMaterials[0].TotalCost)
	}
	if pe.LaborEntries[1].TotalCost != 50 {
		t.Errorf("labor line TotalCost = %v, want 50", pe.LaborEntries[1].TotalCost)
	}
}

func TestProductionEntryTransitions(t *testing.T) {
	allStatuses := []string{PEStatusDraft, PEStatusSubmitted, PEStatusPosted, PEStatusReversed}

	allowed := map[[2]string]bool{
		{PEStatusDraft, PEStatusSubmitted}:  true,
		{PEStatusSubmitted, PEStatusPosted}: true,
		{PEStatusPosted, PEStatusReversed}:  true,
	}

	// 全量枚举：表内转移允许，其余一律拒绝
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]string{from, to}]
			if got := CanTransitionPE(from, to); got != want {
				t.Errorf("CanTransitionPE(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	// 冲销后为终态
	for _, to := range allStatuses {
		if CanTransitionPE(PEStatusReversed, to) {
			t.Errorf("CanTransitionPE(%s, %s) = true, want false", PEStatusReversed, to)
		}
	}
}

func TestProductionEntryReplaceConsumedMaterials(t *testing.T) {
	pe := ProductionEntry{
		Quantity: 10,
		ConsumedMaterials: []ConsumedMaterial{
			{ItemCode: "PART-A", Quantity: 55, UnitCost: 2},
		},
	}
	pe.RecalculateCosts()
	if pe.TotalMaterialCost != 110 {
		t.Fatalf("TotalMaterialCost = %v, want 110", pe.TotalMaterialCost)
	}

	// 重复提交同一份清单是替换而非追加，成本不变
	same := []ConsumedMaterial{
		{ItemCode: "PART-A", Quantity: 55, UnitCost: 2},
	}
	pe.ReplaceConsumedMaterials(same)
	if len(pe.ConsumedMaterials) != 1 {
		t.Errorf("len(ConsumedMaterials) = %d, want 1", len(pe.ConsumedMaterials))
	}
	if pe.TotalMaterialCost != 110 {
		t.Errorf("TotalMaterialCost after replace = %v, want 110", pe.TotalMaterialCost)
	}

	// 换一份清单后成本跟着新清单走
	pe.ReplaceConsumedMaterials([]ConsumedMaterial{
		{ItemCode: "PART-B", Quantity: 10, UnitCost: 0.5},
	})
	if pe.TotalMaterialCost != 5 {
		t.Errorf("TotalMaterialCost after new list = %v, want 5", pe.TotalMaterialCost)
	}
	if pe.TotalCost != 5 {
		t.Errorf("TotalCost = %v, want 5", pe.TotalCost)
	}
}

func TestProductionEntryRecalculateCostsZeroQuantity(t *testing.T) {
	pe := ProductionEntry{Quantity: 0, OverheadCost: 10}
	pe.RecalculateCosts()
	if pe.CostPerUnit != 0 {
		t.Errorf("CostPerUnit = %v, want 0 when quantity is 0", pe.CostPerUnit)
	}
}

func TestProductionEntryEditable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{PEStatusDraft, true},
		{PEStatusSubmitted, true},
		{PEStatusPosted, false},
		{PEStatusReversed, false},
	}
	for _, tt := range tests {
		pe := ProductionEntry{Status: tt.status}
		if got := pe.Editable(); got != tt.want {
			t.Errorf("Editable() with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
