package dto

type ApproveProposalRequest struct {
	Approver string `json:"approver" binding:"required,min=1,max=255"`
}

type RejectProposalRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=1000"`
}
