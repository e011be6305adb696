package api

import (
	"net/mail"
	"strings"
)

// Bounds enforced by the console forms.
const (
	MinCreditAmount   = 1
	MaxCreditDuration = 360
)

// Normalize keeps only the attribute belonging to r.Type and trims text
// fields.
func (r *CreditRequest) Normalize() {
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	switch r.Type {
	case CreditPersonal:
		r.PropertyType, r.CompanyName = "", ""
	case CreditRealEstate:
		r.Purpose, r.CompanyName = "", ""
	case CreditProfessional:
		r.Purpose, r.PropertyType = "", ""
	}
}

// Validate normalizes r and checks it. The returned error wraps
// [ErrValidation].
func (r *CreditRequest) Validate() error {
	r.Normalize()
	var p problems
	switch r.Type {
	case "":
		p.addf("credit type is required")
	case CreditPersonal:
		if r.Purpose == "" {
			p.addf("a personal credit requires a purpose (motif)")
		}
	case CreditRealEstate:
		if r.PropertyType == "" {
			p.addf("a real-estate credit requires a property type (typeBienFinance)")
		} else if _, err := ParsePropertyType(string(r.PropertyType)); err != nil {
			p.addf("unknown property type %q", r.PropertyType)
		}
	case CreditProfessional:
		if r.CompanyName == "" {
			p.addf("a professional credit requires a company name (raisonSocialeEntreprise)")
		}
	default:
		p.addf("unknown credit type %q", r.Type)
	}
	if r.ClientID <= 0 {
		p.addf("client id is required")
	}
	if r.Amount < MinCreditAmount {
		p.addf("amount must be at least %d", MinCreditAmount)
	}
	if r.DurationMonths < 1 || r.DurationMonths > MaxCreditDuration {
		p.addf("duration must be between 1 and %d months", MaxCreditDuration)
	}
	if r.InterestRate < 0 {
		p.addf("interest rate cannot be negative")
	}
	return p.err()
}

// Validate checks r. The returned error wraps [ErrValidation].
func (r RepaymentRequest) Validate() error {
	var p problems
	if r.CreditID <= 0 {
		p.addf("credit id is required")
	}
	if r.Amount <= 0 {
		p.addf("amount must be positive")
	}
	switch r.Type {
	case RepaymentMonthly, RepaymentEarly:
	case "":
		p.addf("repayment type is required")
	default:
		p.addf("unknown repayment type %q", r.Type)
	}
	return p.err()
}

// Validate checks r. The returned error wraps [ErrValidation].
func (r RegisterRequest) Validate() error {
	var p problems
	if strings.TrimSpace(r.Username) == "" {
		p.addf("username is required")
	}
	if r.Password == "" {
		p.addf("password is required")
	}
	if strings.TrimSpace(r.FullName) == "" {
		p.addf("full name is required")
	}
	switch email := strings.TrimSpace(r.Email); {
	case email == "":
		p.addf("email is required")
	case !validEmail(email):
		p.addf("email %q is not a valid address", email)
	}
	return p.err()
}

// Validate checks a borrower record before create or update.
func (b Borrower) Validate() error {
	var p problems
	if strings.TrimSpace(b.Name) == "" {
		p.addf("name is required")
	}
	if email := strings.TrimSpace(b.Email); email == "" {
		p.addf("email is required")
	} else if !validEmail(email) {
		p.addf("email %q is not a valid address", email)
	}
	return p.err()
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
