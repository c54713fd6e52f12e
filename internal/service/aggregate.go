package service

import "docflow/internal/model"

// ComputeAggregate 由当前轮次的投票计算文档聚合审批状态，与投票顺序无关
//
//	任一 REJECTED          → REJECTED
//	无投票或无已决投票      → PENDING
//	全部 APPROVED          → APPROVED
//	其余                   → IN_PROGRESS
func ComputeAggregate(votes []model.Approval) model.ApprovalStatus {
	if len(votes) == 0 {
		return model.ApprovalStatusPending
	}

	approved := 0
	for _, v := range votes {
		switch v.Status {
		case model.VoteStatusRejected:
			return model.ApprovalStatusRejected
		case model.VoteStatusApproved:
			approved++
		}
	}

	switch approved {
	case 0:
		return model.ApprovalStatusPending
	case len(votes):
		return model.ApprovalStatusApproved
	default:
		return model.ApprovalStatusInProgress
	}
}

// activeLevel 当前待处理的最低层级：该层级存在未通过的投票；全部通过时返回 0
func activeLevel(votes []model.Approval) int {
	for _, level := range model.Levels {
		for _, v := range votes {
			if v.Level == level && v.Status != model.VoteStatusApproved {
				return level
			}
		}
	}
	return 0
}

// statusForLevel 审批中文档状态跟随当前层级
func statusForLevel(level int) model.DocumentStatus {
	switch level {
	case model.LevelApprover:
		return model.DocumentStatusOnApproval
	case model.LevelAcknowledger:
		return model.DocumentStatusPendingAck
	default:
		return model.DocumentStatusOnReview
	}
}

// statusAfterRejection 审核人驳回退回修改，批准/知悉层级驳回视为拒绝
func statusAfterRejection(level int) model.DocumentStatus {
	if level == model.LevelReviewer {
		return model.DocumentStatusRevisionByReviewer
	}
	return model.DocumentStatusRejected
}

// approversAt 指定层级的审批人 ID（保持投票顺序）
func approversAt(votes []model.Approval, level int) []string {
	var ids []string
	for _, v := range votes {
		if v.Level == level {
			ids = append(ids, v.ApproverID)
		}
	}
	return ids
}
