package domain

// Assignment links an employee to a policy over a half-open civil-date
// interval [EffectiveFrom, EffectiveTo). Uniqueness:
// (company_id, employee_id, policy_id, effective_from). Two assignments for
// the same (company, employee, policy) must never overlap on this interval
// (invariant I6).
type Assignment struct {
	ID            AssignmentID
	CompanyID     CompanyID
	EmployeeID    EmployeeID
	PolicyID      PolicyID
	EffectiveFrom CivilDate
	EffectiveTo   *CivilDate
	CreatedBy     EmployeeID
	CreatedAt     CivilDate
}

// ActiveOn reports whether the assignment is active on d, per the half-open
// rule: EffectiveFrom <= d AND (EffectiveTo IS NULL OR EffectiveTo > d).
func (a Assignment) ActiveOn(d CivilDate) bool {
	if d.Before(a.EffectiveFrom) {
		return false
	}
	if a.EffectiveTo != nil && !d.Before(*a.EffectiveTo) {
		return false
	}
	return true
}

// Overlaps reports whether two assignments' half-open intervals intersect.
func (a Assignment) Overlaps(other Assignment) bool {
	aEnd := farFuture
	if a.EffectiveTo != nil {
		aEnd = *a.EffectiveTo
	}
	bEnd := farFuture
	if other.EffectiveTo != nil {
		bEnd = *other.EffectiveTo
	}
	return a.EffectiveFrom.Before(bEnd) && other.EffectiveFrom.Before(aEnd)
}

var farFuture = NewCivilDate(9999, 12, 31)
