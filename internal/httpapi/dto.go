/*
dto.go - request/response structs for the HTTP surface, following the
teacher's *DTO (response) / *Request (request body) naming convention from
api/dto.go.
*/
package httpapi

import (
	"time"

	"github.com/dayledger/pto/internal/directory"
	"github.com/dayledger/pto/internal/domain"
)

type PolicyDTO struct {
	ID            string          `json:"id"`
	Key           string          `json:"key"`
	Category      string          `json:"category"`
	CurrentVersion *PolicyVersionDTO `json:"current_version,omitempty"`
}

type PolicyVersionDTO struct {
	ID            string         `json:"id"`
	Version       int            `json:"version"`
	EffectiveFrom string         `json:"effective_from"`
	EffectiveTo   *string        `json:"effective_to,omitempty"`
	Type          string         `json:"type"`
	AccrualMethod string         `json:"accrual_method,omitempty"`
	Settings      domain.Settings `json:"settings"`
	ChangeReason  string         `json:"change_reason,omitempty"`
}

type CreatePolicyRequest struct {
	Key           string              `json:"key"`
	Category      string              `json:"category"`
	Type          domain.PolicyType   `json:"type"`
	AccrualMethod *domain.AccrualMethod `json:"accrual_method,omitempty"`
	Settings      domain.Settings     `json:"settings"`
	EffectiveFrom string              `json:"effective_from"`
	ChangeReason  string              `json:"change_reason,omitempty"`
}

type UpdatePolicyRequest = CreatePolicyRequest

type CreateAssignmentRequest struct {
	EmployeeID    string  `json:"employee_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

type AssignmentDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	PolicyID      string  `json:"policy_id"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

type BalanceDTO struct {
	PolicyID         string `json:"policy_id"`
	AccruedMinutes   int64  `json:"accrued_minutes"`
	UsedMinutes      int64  `json:"used_minutes"`
	HeldMinutes      int64  `json:"held_minutes"`
	AvailableMinutes int64  `json:"available_minutes"`
	Version          int64  `json:"version"`
}

type LedgerEntryDTO struct {
	ID            string         `json:"id"`
	PolicyID      string         `json:"policy_id"`
	EntryType     string         `json:"entry_type"`
	AmountMinutes int64          `json:"amount_minutes"`
	EffectiveAt   time.Time      `json:"effective_at"`
	SourceType    string         `json:"source_type"`
	SourceID      string         `json:"source_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type AdjustmentRequest struct {
	EmployeeID    string `json:"employee_id"`
	PolicyID      string `json:"policy_id"`
	AmountMinutes int64  `json:"amount_minutes"`
	Reason        string `json:"reason"`
}

type SubmitRequestRequest struct {
	PolicyID string `json:"policy_id"`
	StartAt  string `json:"start_at"`
	EndAt    string `json:"end_at"`
	Reason   string `json:"reason,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type DecideRequestRequest struct {
	Note string `json:"note,omitempty"`
}

type RequestDTO struct {
	ID               string  `json:"id"`
	EmployeeID       string  `json:"employee_id"`
	PolicyID         string  `json:"policy_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	RequestedMinutes int64   `json:"requested_minutes"`
	Reason           string  `json:"reason,omitempty"`
	Status           string  `json:"status"`
	DecisionNote     string  `json:"decision_note,omitempty"`
}

func requestDTO(r domain.Request) RequestDTO {
	return RequestDTO{
		ID: r.ID.String(), EmployeeID: r.EmployeeID.String(), PolicyID: r.PolicyID.String(),
		StartAt: r.StartAt, EndAt: r.EndAt, RequestedMinutes: r.RequestedMinutes,
		Reason: r.Reason, Status: string(r.Status), DecisionNote: r.DecisionNote,
	}
}

func assignmentDTO(a domain.Assignment) AssignmentDTO {
	dto := AssignmentDTO{ID: a.ID.String(), EmployeeID: a.EmployeeID.String(), PolicyID: a.PolicyID.String(), EffectiveFrom: a.EffectiveFrom.String()}
	if a.EffectiveTo != nil {
		s := a.EffectiveTo.String()
		dto.EffectiveTo = &s
	}
	return dto
}

func balanceDTO(policyID domain.PolicyID, s *domain.BalanceSnapshot) BalanceDTO {
	if s == nil {
		return BalanceDTO{PolicyID: policyID.String()}
	}
	return BalanceDTO{PolicyID: policyID.String(), AccruedMinutes: s.AccruedMinutes, UsedMinutes: s.UsedMinutes, HeldMinutes: s.HeldMinutes, AvailableMinutes: s.AvailableMinutes, Version: s.Version}
}

func ledgerEntryDTO(e domain.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID: e.ID.String(), PolicyID: e.PolicyID.String(), EntryType: string(e.EntryType),
		AmountMinutes: e.AmountMinutes, EffectiveAt: e.EffectiveAt, SourceType: string(e.SourceType),
		SourceID: e.SourceID, Metadata: e.Metadata,
	}
}

func policyVersionDTO(v domain.PolicyVersion) PolicyVersionDTO {
	dto := PolicyVersionDTO{ID: v.ID.String(), Version: v.Version, EffectiveFrom: v.EffectiveFrom.String(), Type: string(v.Type), Settings: v.Settings, ChangeReason: v.ChangeReason}
	if v.EffectiveTo != nil {
		s := v.EffectiveTo.String()
		dto.EffectiveTo = &s
	}
	if v.AccrualMethod != nil {
		dto.AccrualMethod = string(*v.AccrualMethod)
	}
	return dto
}

func policyDTO(p domain.Policy, v *domain.PolicyVersion) PolicyDTO {
	dto := PolicyDTO{ID: p.ID.String(), Key: p.Key, Category: p.Category}
	if v != nil {
		vd := policyVersionDTO(*v)
		dto.CurrentVersion = &vd
	}
	return dto
}

type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

func holidayDTO(h domain.CompanyHoliday) HolidayDTO {
	return HolidayDTO{ID: h.ID.String(), Date: h.Date.String(), Name: h.Name}
}

type CreateHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type EmployeeDTO struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	PayType        string `json:"pay_type,omitempty"`
	WorkdayMinutes int    `json:"workday_minutes,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	HireDate       *string `json:"hire_date,omitempty"`
}

type PutEmployeeRequest = EmployeeDTO

func employeeDTO(e *directory.Employee) EmployeeDTO {
	if e == nil {
		return EmployeeDTO{}
	}
	dto := EmployeeDTO{ID: e.ID.String(), FirstName: e.FirstName, LastName: e.LastName, Email: e.Email, PayType: e.PayType, WorkdayMinutes: e.WorkdayMinutes, Timezone: e.Timezone}
	if e.HireDate != nil {
		s := e.HireDate.String()
		dto.HireDate = &s
	}
	return dto
}

type AuditLogDTO struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func auditLogDTO(a domain.AuditLog) AuditLogDTO {
	return AuditLogDTO{ID: a.ID.String(), ActorID: a.ActorID.String(), EntityType: a.EntityType, EntityID: a.EntityID, Action: string(a.Action), Before: a.Before, After: a.After, CreatedAt: a.CreatedAt}
}

type PayrollWebhookRequest struct {
	CompanyID    string              `json:"company_id"`
	PayrollRunID string              `json:"payroll_run_id"`
	PeriodEnd    string              `json:"period_end"`
	Entries      []PayrollEntryInput `json:"entries"`
}

type PayrollEntryInput struct {
	EmployeeID    string `json:"employee_id"`
	WorkedMinutes int64  `json:"worked_minutes"`
}

type EngineResultDTO struct {
	Processed int `json:"processed"`
	Accrued   int `json:"accrued,omitempty"`
	Carried   int `json:"carried,omitempty"`
	Expired   int `json:"expired,omitempty"`
	Skipped   int `json:"skipped,omitempty"`
	Errors    int `json:"errors"`
}
