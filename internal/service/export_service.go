package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/model"
	"docflow/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoApprovals  = errors.New("该文档暂无审批记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 审批台账导出接口
//
// 导出文档全部轮次的投票记录为 Excel (.xlsx)，以 bytes.Buffer 返回，
// 由 Handler 层设置下载响应头。
type ExportService interface {
	ExportApprovals(ctx context.Context, documentID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportApprovals 导出审批台账
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：标题（编号 + 文档名），合并单元格
//   - 第 2 行：当前状态 / 聚合状态
//   - 第 4 行起：轮次 | 层级 | 审批人 | 结论 | 意见 | 发起时间 | 处理时间

var levelNames = map[int]string{
	model.LevelReviewer:     "审核",
	model.LevelApprover:     "批准",
	model.LevelAcknowledger: "知悉",
}

var voteNames = map[model.VoteStatus]string{
	model.VoteStatusPending:  "待处理",
	model.VoteStatusApproved: "通过",
	model.VoteStatusRejected: "驳回",
}

func (s *exportService) ExportApprovals(ctx context.Context, documentID string) (*bytes.Buffer, string, error) {
	doc, err := s.repo.Document.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		s.logger.Error("查询文档失败", zap.Error(err))
		return nil, "", err
	}

	votes, err := s.repo.Approval.ListAll(ctx, documentID)
	if err != nil {
		s.logger.Error("查询审批记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(votes) == 0 {
		return nil, "", ErrExportNoApprovals
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "审批台账"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{8, 8, 16, 10, 40, 22, 22}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheet, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s %s 审批台账", doc.Number, doc.Title))
	f.MergeCell(sheet, "A1", cell(colName(len(widths)-1), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)
	f.SetCellValue(sheet, "A2", fmt.Sprintf("状态：%s  聚合：%s  当前轮次：%d", doc.Status, doc.ApprovalStatus, doc.RevisionCycle))
	f.MergeCell(sheet, "A2", cell(colName(len(widths)-1), 2))

	headers := []string{"轮次", "层级", "审批人", "结论", "意见", "发起时间", "处理时间"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 4), h)
	}
	f.SetCellStyle(sheet, "A4", cell(colName(len(headers)-1), 4), headerStyle)

	row := 5
	for _, v := range votes {
		approver := v.ApproverID
		if v.Approver != nil {
			approver = v.Approver.Name
		}
		decidedAt := "-"
		if v.ApprovedAt != nil {
			decidedAt = v.ApprovedAt.Format(time.DateTime)
		} else if v.RejectedAt != nil {
			decidedAt = v.RejectedAt.Format(time.DateTime)
		}

		values := []interface{}{
			v.RevisionCycle,
			levelNames[v.Level],
			approver,
			voteNames[v.Status],
			v.Comments,
			v.RequestedAt.Format(time.DateTime),
			decidedAt,
		}
		for i, val := range values {
			f.SetCellValue(sheet, cell(colName(i), row), val)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("审批台账_%s.xlsx", doc.Number)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
