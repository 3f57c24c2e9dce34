package models

import "time"

type BloodData struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"userId"`
	TestDate         string    `gorm:"not null" json:"testDate"`
	HbA1c            *float64  `gorm:"column:hba1c" json:"hba1c"`
	LDL              *float64  `gorm:"column:ldl" json:"ldl"`
	HDL              *float64  `gorm:"column:hdl" json:"hdl"`
	Triglycerides    *float64  `json:"triglycerides"`
	TotalCholesterol *float64  `json:"totalCholesterol"`
	BloodSugar       *float64  `json:"bloodSugar"`
	BNP              *float64  `gorm:"column:bnp" json:"bnp"`
	NTProBNP         *float64  `gorm:"column:nt_probnp" json:"ntProbnp"`
	Creatinine       *float64  `json:"creatinine"`
	EGFR             *float64  `gorm:"column:egfr" json:"egfr"`
	Hemoglobin       *float64  `json:"hemoglobin"`
	UricAcid         *float64  `json:"uricAcid"`
	CPXTests         []CPXTest `gorm:"foreignKey:BloodDataID;constraint:OnDelete:CASCADE" json:"cpxTests"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type CPXTest struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BloodDataID uint      `gorm:"not null;index" json:"bloodDataId"`
	TestRound   int       `gorm:"not null" json:"testRound"`
	LoadWeight  *float64  `json:"loadWeight"`
	VO2         *float64  `gorm:"column:vo2" json:"vo2"`
	METs        *float64  `gorm:"column:mets" json:"mets"`
	HeartRate   *float64  `json:"heartRate"`
	SystolicBP  *float64  `gorm:"column:systolic_bp" json:"systolicBp"`
	MaxLoad     *float64  `json:"maxLoad"`
	ATOnset     *float64  `gorm:"column:at_onset" json:"atOnset"`
	Findings    string    `gorm:"not null;default:''" json:"findings"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (CPXTest) TableName() string {
	return "cpx_tests"
}

func (BloodData) TableName() string {
	return "blood_data"
}
