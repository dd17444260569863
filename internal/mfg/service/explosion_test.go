package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
)

// fakeResolver 以物料ID为键的内存BOM表
func fakeResolver(boms map[string]*entity.BOM) bomResolver {
	return func(ctx context.Context, itemID string) (*entity.BOM, error) {
		if bom, ok := boms[itemID]; ok {
			return bom, nil
		}
		return nil, repository.ErrNotFound
	}
}

func line(itemID, code, itemType string, quantity float64) entity.BOMItem {
	item := entity.BOMItem{
		ItemID:   itemID,
		ItemCode: code,
		ItemType: itemType,
		Quantity: quantity,
		UnitCost: 1,
	}
	item.Recalculate()
	return item
}

func TestExplodeMultiplicativeQuantities(t *testing.T) {
	// FG 需要2个子装配SA，SA配方需要3个零件P：孙级数量 2*3=6
	sa := &entity.BOM{
		ID:     "bom-sa",
		ItemID: "item-sa",
		Items:  []entity.BOMItem{line("item-p", "P", entity.BOMItemTypeComponent, 3)},
	}
	fg := &entity.BOM{
		ID:     "bom-fg",
		ItemID: "item-fg",
		Items:  []entity.BOMItem{line("item-sa", "SA", entity.BOMItemTypeSubAssembly, 2)},
	}

	rows, err := explodeBOM(context.Background(), fg, fakeResolver(map[string]*entity.BOM{"item-sa": sa}))
	if err != nil {
		t.Fatalf("explodeBOM failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	if rows[0].ItemCode != "SA" || rows[0].Level != 0 || rows[0].Quantity != 2 {
		t.Errorf("row 0 = %+v, want SA level 0 quantity 2", rows[0])
	}
	if rows[0].BOMID != "bom-sa" {
		t.Errorf("row 0 BOMID = %s, want bom-sa", rows[0].BOMID)
	}
	if rows[1].ItemCode != "P" || rows[1].Level != 1 || rows[1].Quantity != 6 {
		t.Errorf("row 1 = %+v, want P level 1 quantity 6", rows[1])
	}
}

func TestExplodeSubAssemblyWithoutBOMIsLeaf(t *testing.T) {
	// 没有默认激活BOM的子装配按外购件处理
	fg := &entity.BOM{
		ID:     "bom-fg",
		ItemID: "item-fg",
		Items:  []entity.BOMItem{line("item-sa", "SA", entity.BOMItemTypeSubAssembly, 2)},
	}

	rows, err := explodeBOM(context.Background(), fg, fakeResolver(nil))
	if err != nil {
		t.Fatalf("explodeBOM failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].BOMID != "" {
		t.Errorf("leaf row should not carry a child BOMID, got %s", rows[0].BOMID)
	}
}

func TestExplodeCircularBOMFails(t *testing.T) {
	// A 含 B，B 又含 A
	bomA := &entity.BOM{
		ID:     "bom-a",
		ItemID: "item-a",
		Items:  []entity.BOMItem{line("item-b", "B", entity.BOMItemTypeSubAssembly, 1)},
	}
	bomB := &entity.BOM{
		ID:     "bom-b",
		ItemID: "item-b",
		Items:  []entity.BOMItem{line("item-a", "A", entity.BOMItemTypeSubAssembly, 1)},
	}

	_, err := explodeBOM(context.Background(), bomA, fakeResolver(map[string]*entity.BOM{
		"item-a": bomA,
		"item-b": bomB,
	}))
	if !errors.Is(err, ErrCircularBOM) {
		t.Fatalf("err = %v, want ErrCircularBOM", err)
	}
}

func TestExplodeSelfReferenceFails(t *testing.T) {
	bom := &entity.BOM{
		ID:     "bom-x",
		ItemID: "item-x",
		Items:  []entity.BOMItem{line("item-x", "X", entity.BOMItemTypeSubAssembly, 1)},
	}
	_, err := explodeBOM(context.Background(), bom, fakeResolver(map[string]*entity.BOM{"item-x": bom}))
	if !errors.Is(err, ErrCircularBOM) {
		t.Fatalf("err = %v, want ErrCircularBOM", err)
	}
}

func TestExplodeDiamondSharedSubAssembly(t *testing.T) {
	// 同一子装配出现在两条路径上不是环：
	// FG 含 SA1 和 SA2，两者都用零件P
	p := func() entity.BOMItem { return line("item-p", "P", entity.BOMItemTypeComponent, 1) }
	sa1 := &entity.BOM{ID: "bom-sa1", ItemID: "item-sa1", Items: []entity.BOMItem{p()}}
	sa2 := &entity.BOM{ID: "bom-sa2", ItemID: "item-sa2", Items: []entity.BOMItem{p()}}
	fg := &entity.BOM{
		ID:     "bom-fg",
		ItemID: "item-fg",
		Items: []entity.BOMItem{
			line("item-sa1", "SA1", entity.BOMItemTypeSubAssembly, 2),
			line("item-sa2", "SA2", entity.BOMItemTypeSubAssembly, 3),
		},
	}

	rows, err := explodeBOM(context.Background(), fg, fakeResolver(map[string]*entity.BOM{
		"item-sa1": sa1,
		"item-sa2": sa2,
	}))
	if err != nil {
		t.Fatalf("explodeBOM failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	// P 在两条路径上分别按各自父行数量放大
	var pQuantities []float64
	for _, row := range rows {
		if row.ItemCode == "P" {
			pQuantities = append(pQuantities, row.Quantity)
		}
	}
	if len(pQuantities) != 2 || pQuantities[0] != 2 || pQuantities[1] != 3 {
		t.Errorf("P quantities = %v, want [2 3]", pQuantities)
	}
}

func TestExplodeScrapAndCost(t *testing.T) {
	item := entity.BOMItem{
		ItemID:          "item-a",
		ItemCode:        "PART-A",
		ItemType:        entity.BOMItemTypeComponent,
		Quantity:        5,
		ScrapPercentage: 10,
		UnitCost:        2,
	}
	item.Recalculate()
	fg := &entity.BOM{ID: "bom-fg", ItemID: "item-fg", Items: []entity.BOMItem{item}}

	rows, err := explodeBOM(context.Background(), fg, fakeResolver(nil))
	if err != nil {
		t.Fatalf("explodeBOM failed: %v", err)
	}
	if math.Abs(rows[0].NetQuantity-5.5) > 1e-9 {
		t.Errorf("NetQuantity = %v, want 5.5", rows[0].NetQuantity)
	}
	if math.Abs(rows[0].TotalCost-11) > 1e-9 {
		t.Errorf("TotalCost = %v, want 11", rows[0].TotalCost)
	}
}
