package testkit

import (
	"math"
	"math/rand"

	"studyqc/domain/dict"
	"studyqc/domain/rules"
	"studyqc/domain/table"
)

// GeneratorConfig configures the synthetic study generator
type GeneratorConfig struct {
	Rows int   `json:"rows"`
	Seed int64 `json:"seed"`
}

// DefaultGeneratorConfig returns sensible defaults for synthetic studies
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Rows: 200,
		Seed: 42,
	}
}

// SyntheticStudy bundles a generated dataset with the rule tables and
// dictionary that exercise it.
type SyntheticStudy struct {
	Dataset      *table.Dataset
	ChangeRules  []rules.ChangeRule
	WarningRules []rules.WarningRule
	Dictionary   *dict.Dictionary
}

// StudyGenerator produces clinical-looking study records with known
// data-entry defects injected at fixed rates, so every rule kind has
// something to correct or flag.
type StudyGenerator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewStudyGenerator creates a seeded study generator
func NewStudyGenerator(config GeneratorConfig) *StudyGenerator {
	return &StudyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Defect bands on a single per-row roll, so a row carries at most one
// injected defect and rates stay independent.
const (
	bandSmokerCode  = 0.04 // legacy 9/99 smoker codes
	bandWeightShift = 0.06 // weight entered in hectograms
	bandLowerSex    = 0.09 // lowercase sex codes
	bandPregnant    = 0.10 // pregnancy recorded for a male subject
	bandAgeOut      = 0.12 // age outside protocol window
	bandBMIDrift    = 0.14 // recorded BMI disagrees with derived
	bandSentinel    = 0.19 // sentinel code in systolic pressure
	bandBadSex      = 0.21 // sex code outside the dictionary
)

// Generate builds the full synthetic study
func (g *StudyGenerator) Generate() (*SyntheticStudy, error) {
	columns := []string{
		"id", "site", "sex", "age", "height_cm", "weight_kg", "bmi",
		"smoker", "pregnant", "sbp",
	}

	rows := make([][]table.Value, 0, g.config.Rows)
	for i := 0; i < g.config.Rows; i++ {
		rows = append(rows, g.generateSubject(i+1))
	}

	ds, err := table.NewDataset(columns, rows)
	if err != nil {
		return nil, err
	}

	return &SyntheticStudy{
		Dataset:      ds,
		ChangeRules:  StandardChangeRules(),
		WarningRules: StandardWarningRules(),
		Dictionary:   StandardDictionary(),
	}, nil
}

func (g *StudyGenerator) generateSubject(id int) []table.Value {
	male := g.rng.Float64() < 0.5
	sex := "F"
	if male {
		sex = "M"
	}

	age := float64(18 + g.rng.Intn(73))
	height := float64(150 + g.rng.Intn(46))
	weight := math.Round((45+g.rng.Float64()*75)*10) / 10
	smoker := float64(g.rng.Intn(2))
	pregnant := 0.0
	if !male && g.rng.Float64() < 0.2 {
		pregnant = 1
	}
	sbp := float64(90 + g.rng.Intn(91))

	// Derived exactly the way the consistency formula derives it, so
	// undrifted rows compare equal.
	bmi := weight / (height / 100 * height / 100)

	sexCell := table.Str(sex)
	roll := g.rng.Float64()
	switch {
	case roll < bandSmokerCode:
		if g.rng.Intn(2) == 0 {
			smoker = 9
		} else {
			smoker = 99
		}
	case roll < bandWeightShift:
		weight *= 10
	case roll < bandLowerSex:
		if male {
			sexCell = table.Str("m")
		} else {
			sexCell = table.Str("f")
		}
	case roll < bandPregnant:
		pregnant = 1
		sexCell = table.Str("M")
	case roll < bandAgeOut:
		if g.rng.Intn(2) == 0 {
			age = float64(8 + g.rng.Intn(10))
		} else {
			age = float64(91 + g.rng.Intn(20))
		}
	case roll < bandBMIDrift:
		bmi += 3 + g.rng.Float64()*5
	case roll < bandSentinel:
		sbp = [3]float64{666, 777, 888}[g.rng.Intn(3)]
	case roll < bandBadSex:
		if g.rng.Intn(2) == 0 {
			sexCell = table.Str("U")
		} else {
			sexCell = table.Null()
		}
	}

	return []table.Value{
		table.Num(float64(id)),
		table.Num(float64(1 + g.rng.Intn(5))),
		sexCell,
		table.Num(age),
		table.Num(height),
		table.Num(weight),
		table.Num(bmi),
		table.Num(smoker),
		table.Num(pregnant),
		table.Num(sbp),
	}
}

// StandardChangeRules is the correction table matching the generator's
// injected defects.
func StandardChangeRules() []rules.ChangeRule {
	return []rules.ChangeRule{
		{
			Kind: rules.ChangeDirect, Variable: "smoker",
			Trigger: "9,99", Replacement: 0.0,
			Comment: "legacy smoker codes recoded to non-smoker",
		},
		{
			Kind: rules.ChangeExpression, Variable: "weight_kg",
			Condition: "weight_kg > 400", Replacement: "weight_kg / 10",
			Comment: "weight decimal shift corrected",
		},
		{
			Kind: rules.ChangeDirect, Variable: "sex",
			Trigger: "m", Replacement: "M",
			Comment: "sex code capitalized",
		},
		{
			Kind: rules.ChangeDirect, Variable: "sex",
			Trigger: "f", Replacement: "F",
			Comment: "sex code capitalized",
		},
		{
			Kind: rules.ChangeCrossVar, Variable: "pregnant",
			CrossVariable: "sex", Trigger: "1", CrossCondition: "M",
			Replacement: 0.0,
			Comment:     "pregnancy cleared for male subjects",
		},
	}
}

// StandardWarningRules is the review table matching the generator's
// injected defects.
func StandardWarningRules() []rules.WarningRule {
	bound := func(v float64) *float64 { return &v }
	return []rules.WarningRule{
		{
			Kind: rules.WarningRange, Variable: "age",
			Lower: bound(18), Upper: bound(90),
			Comment: "age outside protocol window",
		},
		{
			Kind: rules.WarningRange, Variable: "bmi",
			Lower: bound(16), Upper: bound(50),
			Comment: "BMI out of range",
		},
		{
			Kind: rules.WarningRange, Variable: "sbp",
			Lower: bound(70), Upper: bound(220),
			Comment: "systolic pressure implausible",
		},
		{
			Kind: rules.WarningValueSet, Variable: "sex",
			Valid:   "M,F",
			Comment: "sex code outside dictionary",
		},
		{
			Kind: rules.WarningCrossVar, Variable: "bmi",
			CrossVariable: "sex", CrossValue: "M,F",
			FormulaVariables: []string{"bmi", "weight_kg", "height_cm"},
			Formula:          "bmi == weight_kg / (height_cm/100 * height_cm/100)",
			Comment:          "derived BMI disagrees with recorded BMI",
		},
	}
}

// StandardDictionary covers every generated column
func StandardDictionary() *dict.Dictionary {
	return dict.New([]dict.Entry{
		{Variable: "id", Category: "identifiers"},
		{Variable: "site", Category: "identifiers"},
		{Variable: "sex", Category: "demographics"},
		{Variable: "age", Category: "demographics"},
		{Variable: "height_cm", Category: "vitals", Label: "standing height"},
		{Variable: "weight_kg", Category: "vitals", Label: "body weight"},
		{Variable: "bmi", Category: "vitals", Label: "body mass index"},
		{Variable: "smoker", Category: "lifestyle"},
		{Variable: "pregnant", Category: "clinical"},
		{Variable: "sbp", Category: "vitals", Label: "systolic blood pressure"},
	})
}

// SampleStudy is a small fixed study with one row per defect kind plus one
// clean row, for tests that assert exact engine outcomes.
func SampleStudy() *SyntheticStudy {
	bmiFor := func(w, h float64) float64 { return w / (h / 100 * h / 100) }

	columns := []string{
		"id", "sex", "age", "height_cm", "weight_kg", "bmi",
		"smoker", "pregnant", "sbp",
	}
	rows := [][]table.Value{
		{table.Num(1), table.Str("M"), table.Num(34), table.Num(180), table.Num(81), table.Num(bmiFor(81, 180)), table.Num(0), table.Num(0), table.Num(120)},
		{table.Num(2), table.Str("F"), table.Num(44), table.Num(164), table.Num(61), table.Num(bmiFor(61, 164)), table.Num(9), table.Num(0), table.Num(118)},
		{table.Num(3), table.Str("m"), table.Num(51), table.Num(175), table.Num(80), table.Num(bmiFor(80, 175)), table.Num(1), table.Num(0), table.Num(131)},
		{table.Num(4), table.Str("M"), table.Num(29), table.Num(182), table.Num(90), table.Num(bmiFor(90, 182)), table.Num(0), table.Num(1), table.Num(125)},
		{table.Num(5), table.Str("F"), table.Num(12), table.Num(158), table.Num(52), table.Num(bmiFor(52, 158)), table.Num(0), table.Num(0), table.Num(110)},
		{table.Num(6), table.Str("U"), table.Num(39), table.Num(170), table.Num(72), table.Num(bmiFor(72, 170)), table.Num(0), table.Num(0), table.Num(122)},
		{table.Num(7), table.Str("M"), table.Num(47), table.Num(177), table.Num(85), table.Num(bmiFor(85, 177) + 3), table.Num(1), table.Num(0), table.Num(140)},
		{table.Num(8), table.Str("F"), table.Num(56), table.Num(165), table.Num(812), table.Num(bmiFor(81.2, 165)), table.Num(0), table.Num(0), table.Num(128)},
	}

	ds, err := table.NewDataset(columns, rows)
	if err != nil {
		panic(err)
	}

	return &SyntheticStudy{
		Dataset:      ds,
		ChangeRules:  StandardChangeRules(),
		WarningRules: StandardWarningRules(),
		Dictionary:   SampleDictionary(),
	}
}

// SampleDictionary matches SampleStudy's columns plus one variable the
// dataset does not carry, so the missing-variables report has content.
func SampleDictionary() *dict.Dictionary {
	return dict.New([]dict.Entry{
		{Variable: "id", Category: "identifiers"},
		{Variable: "sex", Category: "demographics"},
		{Variable: "age", Category: "demographics"},
		{Variable: "height_cm", Category: "vitals"},
		{Variable: "weight_kg", Category: "vitals"},
		{Variable: "bmi", Category: "vitals"},
		{Variable: "smoker", Category: "lifestyle"},
		{Variable: "pregnant", Category: "clinical"},
		{Variable: "sbp", Category: "vitals"},
		{Variable: "hdl", Category: "labs"},
	})
}
