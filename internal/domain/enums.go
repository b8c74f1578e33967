package domain

// PolicyType discriminates whether a policy's version tracks a balance at all.
type PolicyType string

const (
	PolicyUnlimited PolicyType = "UNLIMITED"
	PolicyAccrual   PolicyType = "ACCRUAL"
)

// AccrualMethod discriminates how an ACCRUAL policy is funded.
type AccrualMethod string

const (
	AccrualTime         AccrualMethod = "TIME"
	AccrualHoursWorked  AccrualMethod = "HOURS_WORKED"
)

type AccrualFrequency string

const (
	FrequencyDaily   AccrualFrequency = "DAILY"
	FrequencyMonthly AccrualFrequency = "MONTHLY"
	FrequencyYearly  AccrualFrequency = "YEARLY"
)

type AccrualTiming string

const (
	TimingStartOfPeriod AccrualTiming = "START_OF_PERIOD"
	TimingEndOfPeriod   AccrualTiming = "END_OF_PERIOD"
)

type Proration string

const (
	ProrationDaysActive Proration = "DAYS_ACTIVE"
	ProrationNone       Proration = "NONE"
)

// RequestStatus is the request workflow's state machine. DRAFT exists only
// as the default DB value - the API never exposes a draft path.
type RequestStatus string

const (
	RequestDraft     RequestStatus = "DRAFT"
	RequestSubmitted RequestStatus = "SUBMITTED"
	RequestApproved  RequestStatus = "APPROVED"
	RequestDenied    RequestStatus = "DENIED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// EntryType is the ledger's transaction classification. Sign conventions are
// fixed: ACCRUAL/ADJUSTMENT/CARRYOVER may be signed either way; HOLD is
// always negative; HOLD_RELEASE is always positive; USAGE is always
// negative; EXPIRATION is always negative.
type EntryType string

const (
	EntryAccrual      EntryType = "ACCRUAL"
	EntryHold         EntryType = "HOLD"
	EntryHoldRelease  EntryType = "HOLD_RELEASE"
	EntryUsage        EntryType = "USAGE"
	EntryAdjustment   EntryType = "ADJUSTMENT"
	EntryExpiration   EntryType = "EXPIRATION"
	EntryCarryover    EntryType = "CARRYOVER"
)

type SourceType string

const (
	SourceRequest SourceType = "REQUEST"
	SourcePayroll SourceType = "PAYROLL"
	SourceAdmin   SourceType = "ADMIN"
	SourceSystem  SourceType = "SYSTEM"
)

// Role is one of the two roles carried by the X-Role identity header.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// AuditAction labels what happened to the audited entity.
type AuditAction string

const (
	ActionCreate  AuditAction = "CREATE"
	ActionUpdate  AuditAction = "UPDATE"
	ActionSubmit  AuditAction = "SUBMIT"
	ActionApprove AuditAction = "APPROVE"
	ActionDeny    AuditAction = "DENY"
	ActionCancel  AuditAction = "CANCEL"
)
