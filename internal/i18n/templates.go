package i18n

var templates = map[MessageKey]map[Language]Template{
	KeyReviewRequired: {
		Chinese: {
			Title:   "待审核：{docTitle}",
			Message: "{requesterName} 提交了文档《{docTitle}》（{docNumber}），请您审核",
		},
		English: {
			Title:   "Review required: {docTitle}",
			Message: "{requesterName} submitted \"{docTitle}\" ({docNumber}) for your review",
		},
	},
	KeyApprovalRequired: {
		Chinese: {
			Title:   "待批准：{docTitle}",
			Message: "文档《{docTitle}》（{docNumber}）已通过审核，请您批准",
		},
		English: {
			Title:   "Approval required: {docTitle}",
			Message: "\"{docTitle}\" ({docNumber}) passed review and is waiting for your approval",
		},
	},
	KeyAckRequired: {
		Chinese: {
			Title:   "待知悉：{docTitle}",
			Message: "文档《{docTitle}》（{docNumber}）已批准，请您确认知悉",
		},
		English: {
			Title:   "Acknowledgment required: {docTitle}",
			Message: "\"{docTitle}\" ({docNumber}) was approved and needs your acknowledgment",
		},
	},
	KeyValidationRequired: {
		Chinese: {
			Title:   "待校验：{docTitle}",
			Message: "文档《{docTitle}》（{docNumber}）已完成全部签署，请校验并归档",
		},
		English: {
			Title:   "Validation required: {docTitle}",
			Message: "\"{docTitle}\" ({docNumber}) is fully signed and waiting for validation",
		},
	},
	KeySigned: {
		Chinese: {
			Title:   "文档已签署：{docTitle}",
			Message: "{signerName}（{role}）已签署您的文档《{docTitle}》",
		},
		English: {
			Title:   "Document signed: {docTitle}",
			Message: "{signerName} ({role}) signed your document \"{docTitle}\"",
		},
	},
	KeyAwaitingValidation: {
		Chinese: {
			Title:   "等待校验：{docTitle}",
			Message: "您的文档《{docTitle}》（{docNumber}）已通过全部审批，正在等待校验",
		},
		English: {
			Title:   "Awaiting validation: {docTitle}",
			Message: "Your document \"{docTitle}\" ({docNumber}) passed every approval level and awaits validation",
		},
	},
	KeySubmitted: {
		Chinese: {
			Title:   "已提交审批：{docTitle}",
			Message: "您的文档《{docTitle}》（{docNumber}）已提交，进入审核流程",
		},
		English: {
			Title:   "Submitted: {docTitle}",
			Message: "Your document \"{docTitle}\" ({docNumber}) was submitted for review",
		},
	},
	KeyApproved: {
		Chinese: {
			Title:   "新发布文档：{docTitle}",
			Message: "文档《{docTitle}》（{docNumber}）已发布，请查阅",
		},
		English: {
			Title:   "Document distributed: {docTitle}",
			Message: "\"{docTitle}\" ({docNumber}) has been distributed to you",
		},
	},
	KeyRejected: {
		Chinese: {
			Title:   "文档被驳回：{docTitle}",
			Message: "您的文档《{docTitle}》被驳回，原因：{reason}",
		},
		English: {
			Title:   "Document rejected: {docTitle}",
			Message: "Your document \"{docTitle}\" was rejected. Reason: {reason}",
		},
	},
	KeyFinalized: {
		Chinese: {
			Title:   "文档已归档：{docTitle}",
			Message: "您的文档《{docTitle}》（{docNumber}）已校验通过，归档类别：{category}",
		},
		English: {
			Title:   "Document finalized: {docTitle}",
			Message: "Your document \"{docTitle}\" ({docNumber}) was validated and filed as {category}",
		},
	},
}
