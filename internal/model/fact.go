package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

type FactType string

const (
	FactTypeDocument    FactType = "document"
	FactTypeSAL         FactType = "sal"
	FactTypeProcurement FactType = "procurement"
	FactTypeListing     FactType = "listing"
	FactTypePermit      FactType = "permit"
	FactTypeResource    FactType = "resource"
)

func (f FactType) IsValid() bool {
	switch f {
	case FactTypeDocument, FactTypeSAL, FactTypeProcurement, FactTypeListing, FactTypePermit, FactTypeResource:
		return true
	}
	return false
}

// FactDetail is the variant part of a fact change. Only the trigger detector
// looks inside it; everything downstream uses the generic FactChange fields.
type FactDetail interface {
	FactType() FactType
}

// DocumentFact reports a vendor or project document approaching or past expiry.
type DocumentFact struct {
	DocumentID   string     `json:"document_id"`
	DocumentType string     `json:"document_type,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Vendor       string     `json:"vendor,omitempty"`
}

func (DocumentFact) FactType() FactType { return FactTypeDocument }

// SALFact reports a work-progress statement (stato avanzamento lavori) behind plan.
type SALFact struct {
	SALNumber      int     `json:"sal_number"`
	PlannedPercent float64 `json:"planned_percent"`
	ActualPercent  float64 `json:"actual_percent"`
}

func (SALFact) FactType() FactType { return FactTypeSAL }

// ProcurementFact reports an RFQ / purchase order status change.
type ProcurementFact struct {
	RFQID            string     `json:"rfq_id"`
	Supplier         string     `json:"supplier,omitempty"`
	PreviousStatus   string     `json:"previous_status,omitempty"`
	CurrentStatus    string     `json:"current_status"`
	ExpectedDelivery *time.Time `json:"expected_delivery,omitempty"`
}

func (ProcurementFact) FactType() FactType { return FactTypeProcurement }

// ListingFact reports a change in a property listing that alters project scope.
type ListingFact struct {
	ListingID      string `json:"listing_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
	CurrentStatus  string `json:"current_status"`
}

func (ListingFact) FactType() FactType { return FactTypeListing }

// PermitFact reports a permit status change from the permit tracker.
type PermitFact struct {
	PermitID  string `json:"permit_id"`
	Authority string `json:"authority,omitempty"`
	Status    string `json:"status"`
}

func (PermitFact) FactType() FactType { return FactTypePermit }

// ResourceFact reports a double-booked crew, machine or supplier slot.
type ResourceFact struct {
	Resource string `json:"resource"`
}

func (ResourceFact) FactType() FactType { return FactTypeResource }

// FactChange is the inbound event from an external fact source.
type FactChange struct {
	FactID             string     `json:"fact_id" jsonschema:"required"`
	FactVersion        int64      `json:"fact_version"`
	FactType           FactType   `json:"fact_type" jsonschema:"required,enum=document,enum=sal,enum=procurement,enum=listing,enum=permit,enum=resource"`
	ProjectID          string     `json:"project_id" jsonschema:"required"`
	AffectedTaskRefs   []string   `json:"affected_task_refs,omitempty"`
	ReportedDelayDays  int        `json:"reported_delay_days"`
	ReportedCostDelta  *float64   `json:"reported_cost_delta,omitempty"`
	SafetyRelevant     bool       `json:"safety_relevant,omitempty"`
	ComplianceRelevant bool       `json:"compliance_relevant,omitempty"`
	Cause              string     `json:"cause,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at"`
	Detail             FactDetail `json:"detail,omitempty" jsonschema:"type=object"`
}

func (f FactChange) Validate() error {
	if f.FactID == "" {
		return NewValidationError("fact_id", "fact_id is required")
	}
	if f.ProjectID == "" {
		return NewValidationError("project_id", "project_id is required")
	}
	if !f.FactType.IsValid() {
		return &EngineError{Kind: ErrUnknownFactType, Detail: fmt.Sprintf("fact type %q", f.FactType)}
	}
	if f.ReportedDelayDays < 0 {
		return NewValidationError("reported_delay_days", "reported_delay_days must not be negative")
	}
	if f.Detail != nil && f.Detail.FactType() != f.FactType {
		return NewValidationError("detail", fmt.Sprintf("detail of type %q does not match fact_type %q", f.Detail.FactType(), f.FactType))
	}
	return nil
}

// UnmarshalJSON peeks at the fact_type discriminator before decoding the
// variant detail into its concrete type.
func (f *FactChange) UnmarshalJSON(data []byte) error {
	peek := gjson.GetManyBytes(data, "fact_type", "detail")
	factType, detail := FactType(peek[0].String()), peek[1]

	type plain FactChange
	var raw struct {
		plain
		// Shadows the interface field, which encoding/json cannot fill.
		Detail json.RawMessage `json:"detail,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FactChange(raw.plain)
	f.Detail = nil

	if !detail.Exists() || detail.Type == gjson.Null {
		return nil
	}
	d, err := decodeFactDetail(factType, []byte(detail.Raw))
	if err != nil {
		return err
	}
	f.Detail = d
	return nil
}

func decodeFactDetail(factType FactType, data []byte) (FactDetail, error) {
	var target FactDetail
	switch factType {
	case FactTypeDocument:
		target = &DocumentFact{}
	case FactTypeSAL:
		target = &SALFact{}
	case FactTypeProcurement:
		target = &ProcurementFact{}
	case FactTypeListing:
		target = &ListingFact{}
	case FactTypePermit:
		target = &PermitFact{}
	case FactTypeResource:
		target = &ResourceFact{}
	default:
		return nil, &EngineError{Kind: ErrUnknownFactType, Detail: fmt.Sprintf("fact type %q", factType)}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("decoding %s detail: %w", factType, err)
	}

	switch d := target.(type) {
	case *DocumentFact:
		return *d, nil
	case *SALFact:
		return *d, nil
	case *ProcurementFact:
		return *d, nil
	case *ListingFact:
		return *d, nil
	case *PermitFact:
		return *d, nil
	case *ResourceFact:
		return *d, nil
	}
	return target, nil
}
