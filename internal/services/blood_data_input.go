package services

import "github.com/terraincognita07/heartnote/internal/models"

const MaxCPXFindingsLength = 2000

type BloodDataInput struct {
	TestDate         string
	HbA1c            string
	LDL              string
	HDL              string
	Triglycerides    string
	TotalCholesterol string
	BloodSugar       string
	BNP              string
	NTProBNP         string
	Creatinine       string
	EGFR             string
	Hemoglobin       string
	UricAcid         string
}

type CPXInput struct {
	BloodDataID uint
	TestRound   string
	LoadWeight  string
	VO2         string
	METs        string
	HeartRate   string
	SystolicBP  string
	MaxLoad     string
	ATOnset     string
	Findings    string
}

func NormalizeBloodDataInput(input BloodDataInput) (models.BloodData, error) {
	errs := FieldErrors{}
	entry := models.BloodData{
		TestDate:         ParseRecordDate(errs, "testDate", input.TestDate),
		HbA1c:            ParseMeasurement(errs, "hba1c", input.HbA1c, false),
		LDL:              ParseMeasurement(errs, "ldl", input.LDL, false),
		HDL:              ParseMeasurement(errs, "hdl", input.HDL, false),
		Triglycerides:    ParseMeasurement(errs, "triglycerides", input.Triglycerides, false),
		TotalCholesterol: ParseMeasurement(errs, "totalCholesterol", input.TotalCholesterol, false),
		BloodSugar:       ParseMeasurement(errs, "bloodSugar", input.BloodSugar, false),
		BNP:              ParseMeasurement(errs, "bnp", input.BNP, false),
		NTProBNP:         ParseMeasurement(errs, "ntProbnp", input.NTProBNP, false),
		Creatinine:       ParseMeasurement(errs, "creatinine", input.Creatinine, false),
		EGFR:             ParseMeasurement(errs, "egfr", input.EGFR, false),
		Hemoglobin:       ParseMeasurement(errs, "hemoglobin", input.Hemoglobin, false),
		UricAcid:         ParseMeasurement(errs, "uricAcid", input.UricAcid, false),
	}
	if err := errs.Err(); err != nil {
		return models.BloodData{}, err
	}
	return entry, nil
}

func NormalizeCPXInput(input CPXInput) (models.CPXTest, error) {
	errs := FieldErrors{}
	test := models.CPXTest{
		BloodDataID: input.BloodDataID,
		LoadWeight:  ParseMeasurement(errs, "loadWeight", input.LoadWeight, false),
		VO2:         ParseMeasurement(errs, "vo2", input.VO2, false),
		METs:        ParseMeasurement(errs, "mets", input.METs, false),
		HeartRate:   ParseMeasurement(errs, "heartRate", input.HeartRate, false),
		SystolicBP:  ParseMeasurement(errs, "systolicBp", input.SystolicBP, false),
		MaxLoad:     ParseMeasurement(errs, "maxLoad", input.MaxLoad, false),
		ATOnset:     ParseMeasurement(errs, "atOnset", input.ATOnset, false),
		Findings:    LimitedText(errs, "findings", input.Findings, MaxCPXFindingsLength),
	}
	if round := ParseCount(errs, "testRound", input.TestRound, true); round != nil {
		test.TestRound = *round
	}
	if err := errs.Err(); err != nil {
		return models.CPXTest{}, err
	}
	return test, nil
}
