package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CreditStatus is the approval state of a credit.
type CreditStatus string

const (
	StatusPending  CreditStatus = "EN_COURS"
	StatusAccepted CreditStatus = "ACCEPTE"
	StatusRejected CreditStatus = "REJETE"
)

// CreditStatuses lists the known statuses in workflow order.
var CreditStatuses = []CreditStatus{StatusPending, StatusAccepted, StatusRejected}

// CreditType is the credit product.
type CreditType string

const (
	CreditPersonal     CreditType = "PERSONNEL"
	CreditRealEstate   CreditType = "IMMOBILIER"
	CreditProfessional CreditType = "PROFESSIONNEL"
)

// CreditTypes lists the known credit products.
var CreditTypes = []CreditType{CreditPersonal, CreditRealEstate, CreditProfessional}

// RepaymentType distinguishes scheduled instalments from early repayments.
type RepaymentType string

const (
	RepaymentMonthly RepaymentType = "MENSUALITE"
	RepaymentEarly   RepaymentType = "REMBOURSEMENT_ANTICIPE"
)

// RepaymentTypes lists the known repayment types.
var RepaymentTypes = []RepaymentType{RepaymentMonthly, RepaymentEarly}

// PropertyType is the kind of property a real-estate credit finances.
type PropertyType string

const (
	PropertyApartment  PropertyType = "APPARTEMENT"
	PropertyHouse      PropertyType = "MAISON"
	PropertyCommercial PropertyType = "LOCAL_COMMERCIAL"
)

// PropertyTypes lists the known property types.
var PropertyTypes = []PropertyType{PropertyApartment, PropertyHouse, PropertyCommercial}

func parseEnum[T ~string](kind, s string, known []T) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(s)))
	for _, k := range known {
		if k == v {
			return v, nil
		}
	}
	names := make([]string, len(known))
	for i, k := range known {
		names[i] = string(k)
	}
	return "", fmt.Errorf("%w: unknown %s %q (want one of %s)", ErrValidation, kind, s, strings.Join(names, ", "))
}

// ParseCreditStatus parses a status name case-insensitively.
func ParseCreditStatus(s string) (CreditStatus, error) {
	return parseEnum("credit status", s, CreditStatuses)
}

// ParseCreditType parses a credit type name case-insensitively.
func ParseCreditType(s string) (CreditType, error) {
	return parseEnum("credit type", s, CreditTypes)
}

// ParseRepaymentType parses a repayment type name case-insensitively.
func ParseRepaymentType(s string) (RepaymentType, error) {
	return parseEnum("repayment type", s, RepaymentTypes)
}

// ParsePropertyType parses a property type name case-insensitively.
func ParsePropertyType(s string) (PropertyType, error) {
	return parseEnum("property type", s, PropertyTypes)
}

// Borrower is a client record of the lending API.
type Borrower struct {
	ID      int64           `json:"id,omitempty"`
	Name    string          `json:"nom"`
	Email   string          `json:"email"`
	Credits []CreditSummary `json:"credits,omitempty"`
}

// BorrowerSummary is the short client form embedded in credits.
type BorrowerSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"nom"`
	Email       string `json:"email"`
	CreditCount int    `json:"nombreCredits"`
}

// CreditSummary is the list form of a credit.
type CreditSummary struct {
	ID             int64        `json:"id"`
	RequestedOn    Date         `json:"dateDemande"`
	Status         CreditStatus `json:"statut"`
	Amount         float64      `json:"montant"`
	DurationMonths int          `json:"dureeRemboursement"`
	Type           CreditType   `json:"type"`
	Purpose        string       `json:"motif,omitempty"`
	PropertyType   PropertyType `json:"typeBienFinance,omitempty"`
	CompanyName    string       `json:"raisonSocialeEntreprise,omitempty"`
}

// Detail returns the type-specific attribute of the credit.
func (c CreditSummary) Detail() string {
	switch c.Type {
	case CreditPersonal:
		return c.Purpose
	case CreditRealEstate:
		return string(c.PropertyType)
	case CreditProfessional:
		return c.CompanyName
	}
	return ""
}

// Credit is the full form of a credit.
type Credit struct {
	CreditSummary
	AcceptedOn   Date             `json:"dateAcception"`
	InterestRate float64          `json:"tauxInteret"`
	Client       *BorrowerSummary `json:"client,omitempty"`
	Repayments   []Repayment      `json:"remboursements,omitempty"`
}

// CreditRequest creates or updates a credit. Only the attribute matching
// Type is sent; see [CreditRequest.Normalize].
type CreditRequest struct {
	Type           CreditType   `json:"type"`
	Amount         float64      `json:"montant"`
	DurationMonths int          `json:"dureeRemboursement"`
	InterestRate   float64      `json:"tauxInteret"`
	ClientID       int64        `json:"clientId"`
	Purpose        string       `json:"motif,omitempty"`
	PropertyType   PropertyType `json:"typeBienFinance,omitempty"`
	CompanyName    string       `json:"raisonSocialeEntreprise,omitempty"`
}

// Repayment is a recorded repayment.
type Repayment struct {
	ID       int64         `json:"id"`
	Date     Date          `json:"date"`
	Amount   float64       `json:"montant"`
	Type     RepaymentType `json:"type"`
	CreditID int64         `json:"creditId"`
}

// RepaymentRequest creates or updates a repayment.
type RepaymentRequest struct {
	Date     Date          `json:"date"`
	Amount   float64       `json:"montant"`
	Type     RepaymentType `json:"type"`
	CreditID int64         `json:"creditId"`
}

// MonthlyPayment is the server's instalment calculation for a credit.
type MonthlyPayment struct {
	CreditID       int64   `json:"creditId"`
	Amount         float64 `json:"montant"`
	DurationMonths int     `json:"dureeRemboursement"`
	InterestRate   float64 `json:"tauxInteret"`
	Monthly        float64 `json:"mensualite"`
	TotalInterest  float64 `json:"totalInterets"`
	TotalPayment   float64 `json:"totalPaiement"`
}

// ScheduleEntry is one line of an amortisation schedule.
type ScheduleEntry struct {
	Number    int     `json:"numeroPaiement"`
	Date      Date    `json:"datePaiement"`
	Total     float64 `json:"montantTotal"`
	Principal float64 `json:"montantPrincipal"`
	Interest  float64 `json:"montantInteret"`
	Balance   float64 `json:"soldeRestant"`
}

// RemainingBalance is the repayment position of a credit.
type RemainingBalance struct {
	CreditID          int64   `json:"creditId"`
	InitialAmount     float64 `json:"montantInitial"`
	TotalWithInterest float64 `json:"montantTotalAvecInterets"`
	TotalInterest     float64 `json:"interetsTotaux"`
	Repaid            float64 `json:"montantRembourse"`
	Remaining         float64 `json:"soldeRestant"`
	MonthlyPayments   int     `json:"nombrePaiementsMensuels"`
	EarlyRepayments   int     `json:"nombreRemboursementsAnticipes"`
}

// EarlyRepaymentResult is returned by an early repayment.
type EarlyRepaymentResult struct {
	Repayment Repayment        `json:"remboursement"`
	Balance   RemainingBalance `json:"creditBalance"`
}

// ValidationResult is the server-side eligibility check of a credit request.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// AuthResponse is the login response.
type AuthResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// RegisterRequest creates a console user.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role,omitempty"`
}

// SummaryGroup aggregates the credits sharing a status or type.
type SummaryGroup struct {
	Credits         []CreditSummary  `json:"credits"`
	Count           int              `json:"count"`
	TotalAmount     float64          `json:"totalAmount"`
	StatusBreakdown map[string]int64 `json:"statusBreakdown,omitempty"`
}

// Summary is a reporting breakdown: one group per status or type plus
// overall totals.
type Summary struct {
	Groups       map[string]SummaryGroup
	TotalCredits int
	TotalAmount  float64
}

// Keys returns the group names in sorted order.
func (s Summary) Keys() []string {
	keys := make([]string, 0, len(s.Groups))
	for k := range s.Groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON splits the flat reporting object into totals and groups.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Summary{Groups: make(map[string]SummaryGroup)}
	for k, v := range raw {
		switch k {
		case "totalCredits":
			if err := json.Unmarshal(v, &out.TotalCredits); err != nil {
				return fmt.Errorf("totalCredits: %w", err)
			}
		case "totalAmount":
			if err := json.Unmarshal(v, &out.TotalAmount); err != nil {
				return fmt.Errorf("totalAmount: %w", err)
			}
		default:
			var g SummaryGroup
			if err := json.Unmarshal(v, &g); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			out.Groups[k] = g
		}
	}
	*s = out
	return nil
}

// MarshalJSON restores the flat reporting shape.
func (s Summary) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Groups)+2)
	for k, g := range s.Groups {
		flat[k] = g
	}
	flat["totalCredits"] = s.TotalCredits
	flat["totalAmount"] = s.TotalAmount
	return json.Marshal(flat)
}
