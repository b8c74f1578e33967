package domain

// CompanyHoliday marks a civil date on which the duration calculator skips
// working-minute accumulation. Uniqueness: (company_id, date).
type CompanyHoliday struct {
	ID        HolidayID
	CompanyID CompanyID
	Date      CivilDate
	Name      string
}
