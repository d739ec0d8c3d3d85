package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"inspection_log/internal/errs"
)

// FormStatus is the workflow status of an inspection form
type FormStatus string

const (
	FormStatusDraft     FormStatus = "DRAFT"
	FormStatusSubmitted FormStatus = "SUBMITTED"
	FormStatusApproved  FormStatus = "APPROVED"
	FormStatusRejected  FormStatus = "REJECTED"
)

// FormStatuses lists every valid status in workflow order
var FormStatuses = []FormStatus{FormStatusDraft, FormStatusSubmitted, FormStatusApproved, FormStatusRejected}

// ParseFormStatus parses a status name case-insensitively
func ParseFormStatus(s string) (FormStatus, error) {
	st := FormStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range FormStatuses {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: %w", s, errs.ErrValidation)
}

// Reviewed reports whether the status carries review metadata
func (s FormStatus) Reviewed() bool {
	return s == FormStatusApproved || s == FormStatusRejected
}

// Lacquer is a coating material consumed in the inspected batch
type Lacquer struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Weight     string `json:"weight"`
	BatchNo    string `json:"batchNo"`
	ExpiryDate *Date  `json:"expiryDate,omitempty"`
}

// Characteristic is an observed or measured quality attribute.
// Dual-point measurements use BodyThickness/BottomThickness instead of Observation.
type Characteristic struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Observation     string `json:"observation,omitempty"`
	BodyThickness   string `json:"bodyThickness,omitempty"`
	BottomThickness string `json:"bottomThickness,omitempty"`
	Comments        string `json:"comments"`
}

// DualPoint reports whether c carries body/bottom values
func (c Characteristic) DualPoint() bool {
	return c.BodyThickness != "" || c.BottomThickness != ""
}

// InspectionForm is a first-article inspection record for one batch
type InspectionForm struct {
	BaseModel
	DocumentNo string `gorm:"type:varchar(64);uniqueIndex;not null" json:"documentNo"`

	IssuanceNo   string `gorm:"type:varchar(16)" json:"issuanceNo"`
	IssueDate    *Date  `json:"issueDate"`
	ReviewedDate *Date  `json:"reviewedDate"`
	Page         string `gorm:"type:varchar(32)" json:"page"`
	PreparedBy   string `gorm:"type:varchar(128)" json:"preparedBy"`
	ApprovedBy   string `gorm:"type:varchar(128)" json:"approvedBy"`
	Issued       string `gorm:"type:varchar(128)" json:"issued"`

	InspectionDate *Date  `gorm:"index" json:"inspectionDate"`
	Product        string `gorm:"type:varchar(255)" json:"product"`
	SizeNo         string `gorm:"type:varchar(64)" json:"sizeNo"`
	Shift          string `gorm:"type:varchar(16)" json:"shift"`
	Variant        string `gorm:"type:varchar(128);index" json:"variant"`
	LineNo         string `gorm:"type:varchar(32)" json:"lineNo"`
	Customer       string `gorm:"type:varchar(255)" json:"customer"`
	SampleSize     string `gorm:"type:varchar(64)" json:"sampleSize"`

	Lacquers        datatypes.JSONSlice[Lacquer]        `json:"lacquers"`
	Characteristics datatypes.JSONSlice[Characteristic] `json:"characteristics"`

	QAExecutive        string `gorm:"column:qa_executive;type:varchar(128)" json:"qaExecutive"`
	QASignature        string `gorm:"column:qa_signature;type:varchar(255)" json:"qaSignature"`
	ProductionOperator string `gorm:"type:varchar(128)" json:"productionOperator"`
	OperatorSignature  string `gorm:"type:varchar(255)" json:"operatorSignature"`
	FinalApprovalTime  string `gorm:"type:varchar(64)" json:"finalApprovalTime"`

	Status      FormStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	SubmittedBy string     `gorm:"type:varchar(128);index" json:"submittedBy"`
	SubmittedAt *time.Time `json:"submittedAt"`
	ReviewedBy  string     `gorm:"type:varchar(128);index" json:"reviewedBy"`
	ReviewedAt  *time.Time `json:"reviewedAt"`
	Comments    string     `gorm:"type:text" json:"comments"`
}

// TableName specifies the table name for InspectionForm model
func (InspectionForm) TableName() string {
	return "inspection_forms"
}

// ApplyEdits copies every editable field from src. Workflow status,
// submission and review metadata are left untouched.
func (f *InspectionForm) ApplyEdits(src *InspectionForm) {
	f.DocumentNo = src.DocumentNo
	f.IssuanceNo = src.IssuanceNo
	f.IssueDate = src.IssueDate
	f.ReviewedDate = src.ReviewedDate
	f.Page = src.Page
	f.PreparedBy = src.PreparedBy
	f.ApprovedBy = src.ApprovedBy
	f.Issued = src.Issued
	f.InspectionDate = src.InspectionDate
	f.Product = src.Product
	f.SizeNo = src.SizeNo
	f.Shift = src.Shift
	f.Variant = src.Variant
	f.LineNo = src.LineNo
	f.Customer = src.Customer
	f.SampleSize = src.SampleSize
	f.Lacquers = src.Lacquers
	f.Characteristics = src.Characteristics
	f.QAExecutive = src.QAExecutive
	f.QASignature = src.QASignature
	f.ProductionOperator = src.ProductionOperator
	f.OperatorSignature = src.OperatorSignature
	f.FinalApprovalTime = src.FinalApprovalTime
	f.Comments = src.Comments
}

// Clone returns a deep copy of f
func (f *InspectionForm) Clone() *InspectionForm {
	c := *f
	if f.Lacquers != nil {
		c.Lacquers = make(datatypes.JSONSlice[Lacquer], len(f.Lacquers))
		for i, l := range f.Lacquers {
			if l.ExpiryDate != nil {
				l.ExpiryDate = DatePtr(*l.ExpiryDate)
			}
			c.Lacquers[i] = l
		}
	}
	if f.Characteristics != nil {
		c.Characteristics = make(datatypes.JSONSlice[Characteristic], len(f.Characteristics))
		copy(c.Characteristics, f.Characteristics)
	}
	c.IssueDate = cloneDate(f.IssueDate)
	c.ReviewedDate = cloneDate(f.ReviewedDate)
	c.InspectionDate = cloneDate(f.InspectionDate)
	c.SubmittedAt = cloneTime(f.SubmittedAt)
	c.ReviewedAt = cloneTime(f.ReviewedAt)
	return &c
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	return DatePtr(*d)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
