package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
)

var explosionExportHeaders = []string{
	"层级", "物料编码", "物料名称", "类型", "数量", "净需求量", "单位", "单位成本", "行成本",
}

// ExportExplosion 导出多级展开为xlsx
func (s *BOMService) ExportExplosion(ctx context.Context, id string) (*excelize.File, string, error) {
	bom, err := s.bomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	rows, err := explodeBOM(ctx, bom, s.bomRepo.GetDefaultActiveByItemID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Explosion"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range explosionExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, row := range rows {
		r := i + 2
		// 层级用缩进表达树形
		indent := strings.Repeat("  ", row.Level)
		f.SetCellValue(sheet, fmt.Sprintf("A%d", r), row.Level)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", r), indent+row.ItemCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", r), row.ItemName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", r), row.ItemType)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", r), row.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", r), row.NetQuantity)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", r), row.Unit)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", r), row.UnitCost)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", r), row.TotalCost)
	}

	f.SetColWidth(sheet, "B", "C", 28)

	filename := fmt.Sprintf("%s-explosion-%s.xlsx", bom.Code, time.Now().Format("20060102150405"))

	// 配置了对象存储则归档一份导出，失败不阻断导出本身
	if s.minioClient != nil && s.exportBucket != "" {
		_ = s.archiveExport(ctx, f, filename)
	}

	return f, filename, nil
}

func (s *BOMService) archiveExport(ctx context.Context, f *excelize.File, filename string) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("serialize export: %w", err)
	}
	_, err = s.minioClient.PutObject(ctx, s.exportBucket, "bom-exports/"+filename, buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	return nil
}
