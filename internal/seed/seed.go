// Package seed loads sample users and forms into an empty database.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inspection_log/internal/auth"
	"inspection_log/internal/model"
	"inspection_log/internal/repository"
)

// Seeder writes the sample data set
type Seeder struct {
	Users    repository.UserRepository
	Forms    repository.FormRepository
	Verifier auth.CredentialVerifier
	Logger   *logrus.Entry
}

// Run seeds users and forms unless at least one user exists. It reports
// whether anything was written.
func (s *Seeder) Run(ctx context.Context) (bool, error) {
	log := s.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "seed")

	count, err := s.Users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Info("Database already has data, skipping seed")
		return false, nil
	}

	verifier := s.Verifier
	if verifier == nil {
		verifier = auth.PlainVerifier{}
	}
	for _, u := range sampleUsers() {
		stored, err := verifier.Hash(u.Password)
		if err != nil {
			return false, fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		u.Password = stored
		if err := s.Users.Create(ctx, &u); err != nil {
			return false, fmt.Errorf("create user %s: %w", u.Username, err)
		}
	}

	forms := sampleForms()
	for i := range forms {
		if err := s.Forms.Create(ctx, &forms[i]); err != nil {
			return false, fmt.Errorf("create form %s: %w", forms[i].DocumentNo, err)
		}
	}

	log.WithFields(logrus.Fields{
		"users": len(sampleUsers()),
		"forms": len(forms),
	}).Info("Sample data seeded")
	return true, nil
}

func sampleUsers() []model.User {
	return []model.User{
		{Username: "operator", Password: "operator123", Name: "John Operator", Role: model.RoleOperator, Active: true},
		{Username: "qa", Password: "qa123", Name: "Mike QA", Role: model.RoleQA, Active: true},
		{Username: "avp", Password: "avp123", Name: "Sarah AVP", Role: model.RoleAVP, Active: true},
		{Username: "master", Password: "master123", Name: "Admin Master", Role: model.RoleMaster, Active: true},
	}
}

func date(y int, m time.Month, d int) *model.Date {
	return model.DatePtr(model.NewDate(y, m, d))
}

func at(y int, m time.Month, d, hh, mm int) *time.Time {
	t := time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	return &t
}

func sampleForms() []model.InspectionForm {
	approved := model.InspectionForm{
		DocumentNo:     "AGI-DEC-14-04",
		IssuanceNo:     "00",
		IssueDate:      date(2024, time.August, 1),
		ReviewedDate:   date(2027, time.March, 1),
		Page:           "1 of 1",
		PreparedBy:     "QQM QC",
		ApprovedBy:     "AVP-QA & SYS",
		Issued:         "AVP-QA & SYS",
		InspectionDate: date(2024, time.November, 29),
		Product:        "100 mL Bag Pke.",
		Shift:          "C",
		Variant:        "Pink matt",
		LineNo:         "02",
		SampleSize:     "08 Nos.",
		Lacquers: []model.Lacquer{
			{ID: 1, Name: "Clear Extn", Weight: "11.74", BatchNo: "2634", ExpiryDate: date(2025, time.October, 24)},
			{ID: 2, Name: "Red Dye", Weight: "121g", BatchNo: "2137", ExpiryDate: date(2025, time.October, 20)},
			{ID: 3, Name: "Black Dye", Weight: "46.7g", BatchNo: "1453", ExpiryDate: date(2025, time.October, 21)},
			{ID: 4, Name: "Pink Dye", Weight: "26.5g", BatchNo: "1140", ExpiryDate: date(2025, time.July, 10)},
			{ID: 5, Name: "Violet Dye", Weight: "18.7g", BatchNo: "1160", ExpiryDate: date(2025, time.July, 11)},
			{ID: 6, Name: "Matt Bath", Weight: "300g", BatchNo: "1156", ExpiryDate: date(2025, time.September, 12)},
			{ID: 7, Name: "Hardener", Weight: "60g", BatchNo: "114", ExpiryDate: date(2025, time.November, 20)},
			{ID: 8},
		},
		Characteristics: []model.Characteristic{
			{ID: 1, Name: "Colour Shade", Observation: "Shade 2 : OK"},
			{ID: 2, Name: "(Colour Height)", Observation: "Full"},
			{ID: 3, Name: "Any Visual defect", Observation: "No"},
			{ID: 4, Name: "MEK Test", Observation: "OK"},
			{ID: 5, Name: "Cross Cut Test (Tape Test)", Observation: "OK"},
			{ID: 6, Name: "Coating Thickness", BodyThickness: "20 mic", BottomThickness: "10.2 mic"},
			{ID: 7, Name: "Temperature", Observation: "117°c"},
			{ID: 8, Name: "Viscosity", Observation: "25.1s"},
			{ID: 9, Name: "Batch Composition", Observation: "Clear Extn 11.74 Red Dye 121g Black Dye 46.7g\nPink Dye 26.5g Violet Dye 18.7g\nMatt Bath H-Agent 60g"},
		},
		QAExecutive:        "Mike QA",
		QASignature:        "signed_by_mike_qa",
		ProductionOperator: "John Operator",
		OperatorSignature:  "signed_by_john_operator",
		FinalApprovalTime:  "21:30 hrs",
		Status:             model.FormStatusApproved,
		SubmittedBy:        "John Operator",
		SubmittedAt:        at(2024, time.November, 29, 14, 30),
		ReviewedBy:         "Sarah AVP",
		ReviewedAt:         at(2024, time.November, 29, 17, 45),
	}

	submitted := model.InspectionForm{
		DocumentNo:     "AGI-DEC-14-05",
		IssuanceNo:     "00",
		IssueDate:      date(2024, time.August, 1),
		ReviewedDate:   date(2027, time.March, 1),
		Page:           "1 of 1",
		PreparedBy:     "QQM QC",
		ApprovedBy:     "AVP-QA & SYS",
		Issued:         "AVP-QA & SYS",
		InspectionDate: date(2024, time.November, 30),
		Product:        "200 mL Bottle",
		Shift:          "B",
		Variant:        "Blue matt",
		LineNo:         "01",
		SampleSize:     "08 Nos.",
		Lacquers: []model.Lacquer{
			{ID: 1, Name: "Clear Extn", Weight: "12.5", BatchNo: "2635", ExpiryDate: date(2025, time.October, 30)},
			{ID: 2, Name: "Blue Dye", Weight: "95g", BatchNo: "2140", ExpiryDate: date(2025, time.November, 15)},
			{ID: 3, Name: "Black Dye", Weight: "38.3g", BatchNo: "1455", ExpiryDate: date(2025, time.October, 25)},
			{ID: 4, Name: "Matt Bath", Weight: "320g", BatchNo: "1157", ExpiryDate: date(2025, time.September, 20)},
			{ID: 5, Name: "Hardener", Weight: "64g", BatchNo: "115", ExpiryDate: date(2025, time.November, 25)},
		},
		Characteristics: []model.Characteristic{
			{ID: 1, Name: "Colour Shade", Observation: "Shade 1 : OK"},
			{ID: 2, Name: "(Colour Height)", Observation: "Full"},
			{ID: 3, Name: "Any Visual defect", Observation: "No"},
			{ID: 4, Name: "MEK Test", Observation: "OK"},
			{ID: 5, Name: "Cross Cut Test (Tape Test)", Observation: "OK"},
			{ID: 6, Name: "Coating Thickness", BodyThickness: "18 mic", BottomThickness: "9.8 mic"},
			{ID: 7, Name: "Temperature", Observation: "115°c"},
			{ID: 8, Name: "Viscosity", Observation: "24.5s"},
			{ID: 9, Name: "Batch Composition", Observation: "Clear Extn 12.5 Blue Dye 95g Black Dye 38.3g\nMatt Bath 320g Hardener 64g"},
		},
		QAExecutive:        "Mike QA",
		QASignature:        "signed_by_mike_qa",
		ProductionOperator: "John Operator",
		OperatorSignature:  "signed_by_john_operator",
		FinalApprovalTime:  "18:45 hrs",
		Status:             model.FormStatusSubmitted,
		SubmittedBy:        "John Operator",
		SubmittedAt:        at(2024, time.November, 30, 15, 20),
	}

	return []model.InspectionForm{approved, submitted}
}
