package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"creche/internal/core"
)

// seed mirrors seed.json. Amounts are decimal strings ("800" or "800,50"),
// dates are "2006-01-02" and concerned months "2006-01" or a month name.
type seed struct {
	Children []struct {
		ID              string `json:"id"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		EnrollmentDate  string `json:"enrollment_date"`
		Class           string `json:"class"`
		SchoolYear      string `json:"school_year"`
		MonthlyTuition  string `json:"monthly_tuition"`
		RegistrationFee string `json:"registration_fee"`
		Status          string `json:"status"`
		LastReminder    string `json:"last_reminder"`
	} `json:"children"`
	Payments []struct {
		ID             string `json:"id"`
		ChildID        string `json:"child_id"`
		Amount         string `json:"amount"`
		PaymentDate    string `json:"payment_date"`
		ConcernedMonth string `json:"concerned_month"`
		Method         string `json:"method"`
		Status         string `json:"status"`
		SchoolYear     string `json:"school_year"`
		Comment        string `json:"comment"`
		LastReminder   string `json:"last_reminder"`
	} `json:"payments"`
	FeePayments []struct {
		ID          string `json:"id"`
		ChildID     string `json:"child_id"`
		Amount      string `json:"amount"`
		PaymentDate string `json:"payment_date"`
		Method      string `json:"method"`
	} `json:"fee_payments"`
}

func (s *Store) load(b []byte) error {
	var in seed
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	children := make([]core.Child, 0, len(in.Children))
	for i, rc := range in.Children {
		enrolled, err := parseDate(rc.EnrollmentDate)
		if err != nil {
			return fmt.Errorf("child %d: enrollment date: %w", i, err)
		}
		tuition, err := optionalMoney(rc.MonthlyTuition)
		if err != nil {
			return fmt.Errorf("child %d: monthly tuition: %w", i, err)
		}
		fee, err := optionalMoney(rc.RegistrationFee)
		if err != nil {
			return fmt.Errorf("child %d: registration fee: %w", i, err)
		}
		reminder, err := optionalTime(rc.LastReminder)
		if err != nil {
			return fmt.Errorf("child %d: last reminder: %w", i, err)
		}
		status := core.ChildStatus(strings.ToLower(strings.TrimSpace(rc.Status)))
		if status == "" {
			status = core.StatusActive
		}
		children = append(children, core.Child{
			ID:              rc.ID,
			FirstName:       rc.FirstName,
			LastName:        rc.LastName,
			EnrollmentDate:  enrolled,
			Class:           rc.Class,
			SchoolYear:      rc.SchoolYear,
			MonthlyTuition:  tuition,
			RegistrationFee: core.RegistrationFee{Total: fee},
			Status:          status,
			LastReminder:    reminder,
		})
	}

	payments := make([]core.Payment, 0, len(in.Payments))
	for i, rp := range in.Payments {
		amount, err := core.ParseMoney(rp.Amount)
		if err != nil {
			return fmt.Errorf("payment %d: amount: %w", i, err)
		}
		paidOn, err := parseDate(rp.PaymentDate)
		if err != nil {
			return fmt.Errorf("payment %d: payment date: %w", i, err)
		}
		month, err := core.ParseYearMonth(rp.ConcernedMonth)
		if err != nil {
			return fmt.Errorf("payment %d: concerned month: %w", i, err)
		}
		reminder, err := optionalTime(rp.LastReminder)
		if err != nil {
			return fmt.Errorf("payment %d: last reminder: %w", i, err)
		}
		status := core.PaymentStatus(rp.Status)
		if status == "" {
			status = core.PaymentComplete
		}
		payments = append(payments, core.Payment{
			ID:             rp.ID,
			ChildID:        rp.ChildID,
			Amount:         amount,
			PaymentDate:    paidOn,
			ConcernedMonth: month,
			Method:         core.PaymentMethod(rp.Method),
			Status:         status,
			SchoolYear:     rp.SchoolYear,
			Comment:        rp.Comment,
			LastReminder:   reminder,
		})
	}

	fees := make([]core.FeePayment, 0, len(in.FeePayments))
	for i, rf := range in.FeePayments {
		amount, err := core.ParseMoney(rf.Amount)
		if err != nil {
			return fmt.Errorf("fee payment %d: amount: %w", i, err)
		}
		paidOn, err := parseDate(rf.PaymentDate)
		if err != nil {
			return fmt.Errorf("fee payment %d: payment date: %w", i, err)
		}
		fees = append(fees, core.FeePayment{
			ID:          rf.ID,
			ChildID:     rf.ChildID,
			Amount:      amount,
			PaymentDate: paidOn,
			Method:      core.PaymentMethod(rf.Method),
		})
	}

	// The seed only carries fee totals; the paid amount follows the payments.
	for i := range children {
		for _, f := range fees {
			if f.ChildID == children[i].ID {
				children[i].RegistrationFee.Paid = children[i].RegistrationFee.Paid.Add(f.Amount)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.children, s.payments, s.fees = children, payments, fees
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func optionalMoney(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return core.Money{}, nil
	}
	return core.ParseMoney(s)
}

func optionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = parseDate(s); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
