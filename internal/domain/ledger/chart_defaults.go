package ledger

// Numbers of the system accounts the settlement and payout flows post to
const (
	AccountNumberCash              = "1010"
	AccountNumberBank              = "1020"
	AccountNumberSuspense          = "1099"
	AccountNumberPartnerPayable    = "2010"
	AccountNumberVATPayable        = "2020"
	AccountNumberDeductionClearing = "2090"
	AccountNumberCapital           = "3010"
	AccountNumberRetainedEarnings  = "3020"
	AccountNumberCommissionRevenue = "4010"
	AccountNumberInterestIncome    = "4090"
	AccountNumberOperatingExpense  = "5010"
	AccountNumberBankFees          = "5020"
)

// DefaultChart is the minimal chart seeded for a new tenant. Parents come
// before their children.
var DefaultChart = []struct {
	Spec         AccountSpec
	ParentNumber string
}{
	{Spec: AccountSpec{Number: "1000", Name: "Assets", Type: AccountTypeAsset, Subtype: SubtypeOtherAsset, IsSystem: true}},
	{Spec: AccountSpec{Number: AccountNumberCash, Name: "Cash on Hand", Type: AccountTypeAsset, Subtype: SubtypeCash, IsSystem: true}, ParentNumber: "1000"},
	{Spec: AccountSpec{Number: AccountNumberBank, Name: "Operating Bank Account", Type: AccountTypeAsset, Subtype: SubtypeBank, IsSystem: true}, ParentNumber: "1000"},
	{Spec: AccountSpec{Number: AccountNumberSuspense, Name: "Suspense", Type: AccountTypeAsset, Subtype: SubtypeOtherAsset, IsSystem: true}, ParentNumber: "1000"},
	{Spec: AccountSpec{Number: "2000", Name: "Liabilities", Type: AccountTypeLiability, Subtype: SubtypeOtherLiability, IsSystem: true}},
	{Spec: AccountSpec{Number: AccountNumberPartnerPayable, Name: "Partner Payable", Type: AccountTypeLiability, Subtype: SubtypePartnerPayable, IsSystem: true}, ParentNumber: "2000"},
	{Spec: AccountSpec{Number: AccountNumberVATPayable, Name: "VAT Payable", Type: AccountTypeLiability, Subtype: SubtypeTaxPayable, IsSystem: true}, ParentNumber: "2000"},
	{Spec: AccountSpec{Number: AccountNumberDeductionClearing, Name: "Payout Deductions Clearing", Type: AccountTypeLiability, Subtype: SubtypeOtherLiability, IsSystem: true}, ParentNumber: "2000"},
	{Spec: AccountSpec{Number: "3000", Name: "Equity", Type: AccountTypeEquity, Subtype: SubtypeOtherEquity, IsSystem: true}},
	{Spec: AccountSpec{Number: AccountNumberCapital, Name: "Owner Capital", Type: AccountTypeEquity, Subtype: SubtypeCapital, IsSystem: true}, ParentNumber: "3000"},
	{Spec: AccountSpec{Number: AccountNumberRetainedEarnings, Name: "Retained Earnings", Type: AccountTypeEquity, Subtype: SubtypeRetained, IsSystem: true}, ParentNumber: "3000"},
	{Spec: AccountSpec{Number: "4000", Name: "Revenue", Type: AccountTypeRevenue, Subtype: SubtypeOtherRevenue, IsSystem: true}},
	{Spec: AccountSpec{Number: AccountNumberCommissionRevenue, Name: "Commission Revenue", Type: AccountTypeRevenue, Subtype: SubtypeCommissionRev, IsSystem: true}, ParentNumber: "4000"},
	{Spec: AccountSpec{Number: AccountNumberInterestIncome, Name: "Interest Income", Type: AccountTypeRevenue, Subtype: SubtypeInterestIncome, IsSystem: true}, ParentNumber: "4000"},
	{Spec: AccountSpec{Number: "5000", Name: "Expenses", Type: AccountTypeExpense, Subtype: SubtypeOtherExpense, IsSystem: true}},
	{Spec: AccountSpec{Number: AccountNumberOperatingExpense, Name: "Operating Expenses", Type: AccountTypeExpense, Subtype: SubtypeOperatingExp, IsSystem: true}, ParentNumber: "5000"},
	{Spec: AccountSpec{Number: AccountNumberBankFees, Name: "Bank Fees", Type: AccountTypeExpense, Subtype: SubtypeBankFees, IsSystem: true}, ParentNumber: "5000"},
}
