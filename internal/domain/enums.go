package domain

// LicenseStatus represents the lifecycle state of a mechanical license.
type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "ACTIVE"
	LicenseStatusHeld      LicenseStatus = "HELD"
	LicenseStatusPending   LicenseStatus = "PENDING"
	LicenseStatusCancelled LicenseStatus = "CANCELLED"
)

// LicenseStatusValues returns the allowed license status strings.
func LicenseStatusValues() []string {
	return []string{
		string(LicenseStatusActive),
		string(LicenseStatusHeld),
		string(LicenseStatusPending),
		string(LicenseStatusCancelled),
	}
}

// TransactionType classifies financial transactions against a license.
type TransactionType string

const (
	TransactionTypeRoyaltyPayment TransactionType = "ROYALTY_PAYMENT"
	TransactionTypeAdvance        TransactionType = "ADVANCE"
	TransactionTypeRecoupment     TransactionType = "RECOUPMENT"
	TransactionTypeAdjustment     TransactionType = "ADJUSTMENT"
)

// TransactionTypeValues returns the allowed transaction type strings.
func TransactionTypeValues() []string {
	return []string{
		string(TransactionTypeRoyaltyPayment),
		string(TransactionTypeAdvance),
		string(TransactionTypeRecoupment),
		string(TransactionTypeAdjustment),
	}
}

// PayeeType describes who receives a publisher's payments.
type PayeeType string

const (
	PayeeTypeSelf       PayeeType = "SELF"
	PayeeTypeAgency     PayeeType = "AGENCY"
	PayeeTypeThirdParty PayeeType = "THIRD_PARTY"
)

// PayeeTypeValues returns the allowed payee type strings.
func PayeeTypeValues() []string {
	return []string{
		string(PayeeTypeSelf),
		string(PayeeTypeAgency),
		string(PayeeTypeThirdParty),
	}
}

// RateType describes how a license-publisher royalty rate is expressed.
type RateType string

const (
	RateTypeStatutory  RateType = "STATUTORY"
	RateTypePercentage RateType = "PERCENTAGE"
	RateTypeFixed      RateType = "FIXED"
)

// RateTypeValues returns the allowed rate type strings.
func RateTypeValues() []string {
	return []string{
		string(RateTypeStatutory),
		string(RateTypePercentage),
		string(RateTypeFixed),
	}
}

// ReportStatus tracks the processing state of a royalty report file.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "PENDING"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportStatusValues returns the allowed report status strings.
func ReportStatusValues() []string {
	return []string{
		string(ReportStatusPending),
		string(ReportStatusProcessing),
		string(ReportStatusCompleted),
		string(ReportStatusFailed),
	}
}
