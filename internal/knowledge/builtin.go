package knowledge

import (
	"github.com/medsafe-mcp-server/internal/domain"
)

// BuiltinVersion identifies the compiled-in rule set.
const BuiltinVersion = "2024.1"

// Builtin returns a freshly compiled copy of the compiled-in rule tables.
func Builtin() *Tables {
	t, err := builtinTables().Compile()
	if err != nil {
		// The builtin data is static; failing here is a programming error.
		panic(err)
	}
	return t
}

func builtinTables() *Tables {
	return &Tables{
		Version: BuiltinVersion,

		Aliases: map[string]string{
			"paracetamol":          "acetaminophen",
			"tylenol":              "acetaminophen",
			"advil":                "ibuprofen",
			"motrin":               "ibuprofen",
			"aleve":                "naproxen",
			"benadryl":             "diphenhydramine",
			"coumadin":             "warfarin",
			"asa":                  "aspirin",
			"acetylsalicylic acid": "aspirin",
			"augmentin":            "amoxicillin-clavulanate",
			"zithromax":            "azithromycin",
			"salbutamol":           "albuterol",
			"lanoxin":              "digoxin",
			"toprol":               "metoprolol",
			"lopressor":            "metoprolol",
			"zestril":              "lisinopril",
			"prinivil":             "lisinopril",
			"nsaids":               "nsaid",
			"penicillins":          "penicillin",
			"sulfa drugs":          "sulfa",
			"sulfonamides":         "sulfa",
			"statins":              "statin",
			"fluoroquinolones":     "fluoroquinolone",
			"quinolones":           "fluoroquinolone",
			"beta blockers":        "beta blocker",
			"ace inhibitors":       "ace inhibitor",
			"benzodiazepines":      "benzodiazepine",
			"corticosteroids":      "corticosteroid",
			"steroids":             "corticosteroid",
		},

		Classes: map[string][]string{
			"nsaid":                          {"ibuprofen", "naproxen", "aspirin", "diclofenac", "ketorolac", "celecoxib", "meloxicam", "indomethacin"},
			"penicillin":                     {"amoxicillin", "penicillin", "ampicillin", "piperacillin", "amoxicillin-clavulanate"},
			"sulfa":                          {"sulfamethoxazole", "sulfasalazine", "trimethoprim-sulfamethoxazole"},
			"fluoroquinolone":                {"ciprofloxacin", "levofloxacin", "moxifloxacin", "ofloxacin"},
			"statin":                         {"atorvastatin", "simvastatin", "rosuvastatin", "pravastatin", "lovastatin"},
			"corticosteroid":                 {"prednisone", "prednisolone", "dexamethasone", "methylprednisolone", "hydrocortisone"},
			"beta blocker":                   {"metoprolol", "atenolol", "propranolol", "carvedilol", "bisoprolol"},
			"ace inhibitor":                  {"lisinopril", "enalapril", "ramipril", "captopril"},
			"anticholinergic":                {"amitriptyline", "diphenhydramine", "doxepin", "hydroxyzine", "oxybutynin", "trimethobenzamide"},
			"first generation antihistamine": {"diphenhydramine", "hydroxyzine", "chlorpheniramine", "promethazine"},
			"benzodiazepine":                 {"diazepam", "lorazepam", "alprazolam", "clonazepam"},
			"antipsychotic":                  {"haloperidol", "quetiapine", "risperidone", "olanzapine"},
			"aminoglycoside":                 {"gentamicin", "tobramycin", "amikacin"},
			"thiazide diuretic":              {"hydrochlorothiazide", "chlorthalidone", "indapamide"},
			"calcium channel blocker":        {"verapamil", "diltiazem", "amlodipine"},
			"potassium supplements":          {"potassium chloride"},
			"oral contraceptives":            {"ethinyl estradiol", "levonorgestrel", "norethindrone"},
		},

		PediatricContraindications: []AgeLimitRule{
			{Drug: "tetracycline", AgeLimit: 8, Reason: "Discolors teeth and affects bone growth"},
			{Drug: "fluoroquinolone", AgeLimit: 18, Reason: "Risk of cartilage damage"},
			{Drug: "statin", AgeLimit: 10, Reason: "Limited safety data in young children"},
			{Drug: "aspirin", AgeLimit: 18, Reason: "Risk of Reye's syndrome"},
			{Drug: "codeine", AgeLimit: 12, Reason: "Variable metabolism can cause respiratory depression"},
			{Drug: "ibuprofen", AgeLimit: 2, Reason: "Limited safety data in infants"},
		},

		PediatricDoseCeilings: []DoseCeiling{
			{Drug: "acetaminophen", MaxAge: 2, MaxPerKg: 15, Message: "Acetaminophen dose may be too high for infants"},
			{Drug: "acetaminophen", MinAge: 2, MaxPerKg: 10, Message: "Acetaminophen dose may be too high for children"},
			{Drug: "ibuprofen", MaxPerKg: 10, Message: "Ibuprofen dose may be too high"},
			{Drug: "amoxicillin", MaxPerKg: 50, Message: "Amoxicillin dose seems unusually high"},
		},

		PediatricConditionCautions: []ConditionRule{
			{
				Conditions:     []string{"asthma"},
				Drugs:          []string{"nsaid"},
				Severity:       domain.SeverityModerate,
				Message:        "NSAIDs may trigger asthma exacerbations",
				Recommendation: "Consider acetaminophen for pain or fever",
			},
			{
				Conditions:     []string{"diabetes"},
				Drugs:          []string{"corticosteroid"},
				Severity:       domain.SeverityModerate,
				Message:        "Corticosteroids may affect blood glucose control",
				Recommendation: "Check blood glucose more frequently during treatment",
			},
			{
				Conditions:     []string{"seizures", "epilepsy"},
				Drugs:          []string{"bupropion", "tramadol"},
				Severity:       domain.SeverityModerate,
				Message:        "May lower seizure threshold",
				Recommendation: "Consult neurologist before use",
			},
		},

		WeightBasedDrugs: []string{"acetaminophen", "ibuprofen", "amoxicillin", "azithromycin", "prednisone", "albuterol", "insulin"},

		Beers: []BeersEntry{
			{Drug: "amitriptyline", Reason: "Strong anticholinergic effects, sedation", Alternative: "escitalopram, sertraline"},
			{Drug: "diphenhydramine", Reason: "Strong anticholinergic effects, confusion", Alternative: "loratadine, cetirizine"},
			{Drug: "doxepin", Reason: "Strong anticholinergic effects at doses above 6 mg", Alternative: "low-dose doxepin or sertraline"},
			{Drug: "hydroxyzine", Reason: "Strong anticholinergic effects, confusion", Alternative: "loratadine, cetirizine"},
			{Drug: "meperidine", Reason: "Neurotoxicity, not effective orally at usual doses", Alternative: "morphine, hydromorphone"},
			{Drug: "pentazocine", Reason: "CNS adverse effects including confusion and hallucinations", Alternative: "morphine, oxycodone"},
			{Drug: "trimethobenzamide", Reason: "Extrapyramidal effects, limited efficacy", Alternative: "ondansetron"},
			{Drug: "first generation antihistamine", Reason: "Anticholinergic effects, reduced clearance with age", Alternative: "loratadine, cetirizine"},
			{Drug: "benzodiazepine", Reason: "Increased risk of cognitive impairment, delirium and falls", Alternative: "non-drug sleep interventions"},
		},

		BeersConditions: []BeersConditionRule{
			{Drug: "nsaid", Condition: "heart failure", Reason: "May exacerbate heart failure"},
			{Drug: "beta blocker", Condition: "asthma", Reason: "May cause bronchospasm"},
		},

		GeriatricDoseAdjustments: []DoseAdjustmentRule{
			{Drug: "warfarin", Adjustment: "Reduce dose by 20-30%", Monitoring: "INR monitoring required"},
			{Drug: "digoxin", Adjustment: "Reduce dose by 50%", Monitoring: "Serum levels monitoring"},
			{Drug: "lithium", Adjustment: "Reduce dose by 50-75%", Monitoring: "Serum levels and renal function monitoring"},
			{Drug: "theophylline", Adjustment: "Reduce dose by 50%", Monitoring: "Serum levels monitoring"},
		},

		GeriatricConditionWarnings: []ConditionRule{
			{
				Conditions:     []string{"heart failure"},
				Drugs:          []string{"nsaid"},
				Severity:       domain.SeverityModerate,
				Message:        "NSAIDs may worsen fluid retention in heart failure",
				Recommendation: "Prefer acetaminophen for analgesia",
			},
			{
				Conditions:     []string{"kidney disease", "chronic kidney disease"},
				Drugs:          []string{"nsaid", "aminoglycoside", "ace inhibitor"},
				Severity:       domain.SeverityModerate,
				Message:        "Nephrotoxic risk with reduced renal reserve",
				Recommendation: "Check renal function before and during treatment",
			},
			{
				Conditions:     []string{"dementia"},
				Drugs:          []string{"anticholinergic", "benzodiazepine", "antipsychotic"},
				Severity:       domain.SeverityModerate,
				Message:        "May worsen cognitive impairment in dementia",
				Recommendation: "Use non-pharmacological approaches where possible",
			},
		},

		DosageGuidelines: []DosageGuideline{
			{
				Drug:      "acetaminophen",
				Pediatric: &Guideline{DosePerKg: 10, MaxPerKgDay: 75, Frequency: "q4-6h"},
				Adult:     &Guideline{Dose: 500, MaxDaily: 3000, Frequency: "q4-6h"},
				Geriatric: &Guideline{Dose: 325, MaxDaily: 2000, Frequency: "q6h"},
			},
			{
				Drug:      "ibuprofen",
				Pediatric: &Guideline{DosePerKg: 5, MaxPerKgDay: 40, Frequency: "q6-8h"},
				Adult:     &Guideline{Dose: 400, MaxDaily: 1200, Frequency: "q6-8h"},
				Geriatric: &Guideline{Dose: 200, MaxDaily: 800, Frequency: "q8h"},
			},
			{
				Drug:      "amoxicillin",
				Pediatric: &Guideline{DosePerKg: 25, MaxPerKgDay: 100, Frequency: "q8h"},
				Adult:     &Guideline{Dose: 500, MaxDaily: 2000, Frequency: "q8h"},
				Geriatric: &Guideline{Dose: 500, MaxDaily: 1500, Frequency: "q8h"},
			},
			{
				Drug:      "azithromycin",
				Pediatric: &Guideline{DosePerKg: 10, MaxPerKgDay: 10, Frequency: "daily"},
				Adult:     &Guideline{Dose: 500, MaxDaily: 500, Frequency: "daily"},
				Geriatric: &Guideline{Dose: 250, MaxDaily: 250, Frequency: "daily"},
			},
			{
				Drug:      "lisinopril",
				Adult:     &Guideline{Dose: 10, MaxDaily: 40, Frequency: "daily"},
				Geriatric: &Guideline{Dose: 5, MaxDaily: 20, Frequency: "daily"},
			},
			{
				Drug:      "metoprolol",
				Adult:     &Guideline{Dose: 25, MaxDaily: 200, Frequency: "bid"},
				Geriatric: &Guideline{Dose: 12.5, MaxDaily: 100, Frequency: "bid"},
			},
			{
				Drug:      "albuterol",
				Pediatric: &Guideline{Dose: 2.5, MaxDaily: 10, Frequency: "q4-6h"},
				Adult:     &Guideline{Dose: 2.5, MaxDaily: 20, Frequency: "q4-6h"},
				Geriatric: &Guideline{Dose: 2.5, MaxDaily: 15, Frequency: "q4-6h"},
			},
		},

		SafetyLimits: []SafetyLimit{
			{Drug: "acetaminophen", AdultMaxDaily: 4000, GeriatricMaxDaily: 3000, PediatricMaxPerKgDay: 75},
			{Drug: "ibuprofen", AdultMaxDaily: 1200, GeriatricMaxDaily: 800, PediatricMaxPerKgDay: 40},
			{Drug: "aspirin", AdultMaxDaily: 4000, GeriatricMaxDaily: 2000, PediatricMaxPerKgDay: 100},
			{Drug: "naproxen", AdultMaxDaily: 1000, GeriatricMaxDaily: 750},
			{Drug: "warfarin", AdultMaxDaily: 10, GeriatricMaxDaily: 7.5},
			{Drug: "digoxin", AdultMaxDaily: 0.25, GeriatricMaxDaily: 0.125},
		},

		TherapeuticRanges: []TherapeuticRange{
			{Drug: "warfarin", Min: 1, Max: 10},
			{Drug: "digoxin", Min: 0.125, Max: 0.25},
			{Drug: "lithium", Min: 300, Max: 1200},
			{Drug: "theophylline", Min: 200, Max: 800},
		},

		DosageAgeWarnings: []AgeWarningRule{
			{
				Drugs:          []string{"tetracycline"},
				MaxAge:         8,
				Severity:       domain.SeveritySevere,
				Message:        "Tetracycline contraindicated in children under 8 years",
				Recommendation: "Consider alternative antibiotics",
				Unsafe:         true,
			},
			{
				Drugs:          []string{"fluoroquinolone"},
				MaxAge:         18,
				Severity:       domain.SeveritySevere,
				Message:        "Fluoroquinolones not recommended in children",
				Recommendation: "Consider alternative antibiotics",
				Unsafe:         true,
			},
			{
				Drugs:          []string{"aspirin"},
				MaxAge:         18,
				Severity:       domain.SeveritySevere,
				Message:        "Aspirin use in children under 18 associated with Reye's syndrome",
				Recommendation: "Use acetaminophen or ibuprofen for fever",
				Unsafe:         true,
			},
			{
				Drugs:    []string{"amitriptyline", "diphenhydramine"},
				MinAge:   65,
				Severity: domain.SeverityModerate,
				Message:  "Anticholinergic effects may cause confusion in elderly",
			},
		},

		Renal: []RenalRule{
			{
				Drug: "amoxicillin", BaselineDose: 500,
				Normal:   RenalBandRule{Dose: "500mg q8h", MaxDaily: "2000mg", MaxDailyMg: 2000, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "500mg q8h", MaxDaily: "2000mg", MaxDailyMg: 2000, Multiplier: 1},
				Moderate: RenalBandRule{Dose: "500mg q12h", MaxDaily: "1000mg", MaxDailyMg: 1000, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "500mg q24h", MaxDaily: "500mg", MaxDailyMg: 500, Multiplier: 0.25},
			},
			{
				Drug: "azithromycin", BaselineDose: 500,
				Normal:   RenalBandRule{Dose: "500mg daily", MaxDaily: "500mg", MaxDailyMg: 500, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "500mg daily", MaxDaily: "500mg", MaxDailyMg: 500, Multiplier: 1},
				Moderate: RenalBandRule{Dose: "250mg daily", MaxDaily: "250mg", MaxDailyMg: 250, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "250mg daily", MaxDaily: "250mg", MaxDailyMg: 250, Multiplier: 0.5},
			},
			{
				Drug: "lisinopril", BaselineDose: 10,
				Normal:   RenalBandRule{Dose: "10mg daily", MaxDaily: "40mg", MaxDailyMg: 40, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "5mg daily", MaxDaily: "20mg", MaxDailyMg: 20, Multiplier: 0.5},
				Moderate: RenalBandRule{Dose: "2.5mg daily", MaxDaily: "10mg", MaxDailyMg: 10, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "2.5mg q48h", MaxDaily: "5mg", MaxDailyMg: 5, Multiplier: 0.5},
			},
			{
				Drug: "metoprolol", BaselineDose: 25,
				Normal:   RenalBandRule{Dose: "25mg bid", MaxDaily: "200mg", MaxDailyMg: 200, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "25mg bid", MaxDaily: "200mg", MaxDailyMg: 200, Multiplier: 1},
				Moderate: RenalBandRule{Dose: "12.5mg bid", MaxDaily: "100mg", MaxDailyMg: 100, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "12.5mg daily", MaxDaily: "50mg", MaxDailyMg: 50, Multiplier: 0.5},
			},
			{
				Drug: "warfarin", BaselineDose: 5, Monitoring: "INR monitoring",
				Normal:   RenalBandRule{Dose: "5mg daily", MaxDaily: "10mg", MaxDailyMg: 10, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "5mg daily", MaxDaily: "10mg", MaxDailyMg: 10, Multiplier: 1},
				Moderate: RenalBandRule{Dose: "2.5mg daily", MaxDaily: "5mg", MaxDailyMg: 5, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "1.25mg daily", MaxDaily: "2.5mg", MaxDailyMg: 2.5, Multiplier: 0.25},
			},
			{
				Drug: "digoxin", BaselineDose: 0.125, Monitoring: "Serum digoxin levels",
				Normal:   RenalBandRule{Dose: "0.125mg daily", MaxDaily: "0.25mg", MaxDailyMg: 0.25, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "0.0625mg daily", MaxDaily: "0.125mg", MaxDailyMg: 0.125, Multiplier: 0.5},
				Moderate: RenalBandRule{Dose: "0.0625mg daily", MaxDaily: "0.125mg", MaxDailyMg: 0.125, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "0.0625mg q48h", MaxDaily: "0.0625mg", MaxDailyMg: 0.0625, Multiplier: 0.25},
			},
			{
				Drug: "lithium", BaselineDose: 300, Monitoring: "Serum lithium levels",
				Normal:   RenalBandRule{Dose: "300mg tid", MaxDaily: "1200mg", MaxDailyMg: 1200, Multiplier: 1},
				Mild:     RenalBandRule{Dose: "150mg tid", MaxDaily: "600mg", MaxDailyMg: 600, Multiplier: 0.5},
				Moderate: RenalBandRule{Dose: "150mg bid", MaxDaily: "300mg", MaxDailyMg: 300, Multiplier: 0.5},
				Severe:   RenalBandRule{Dose: "Avoid use", MaxDaily: "0mg", MaxDailyMg: 0, Multiplier: 0.25},
			},
		},

		Interactions: []InteractionRule{
			{
				A: "warfarin", B: "aspirin", Severity: domain.SeverityMajor,
				Effect:     "Increased bleeding risk",
				Mechanism:  "Both drugs affect platelet function and coagulation",
				Management: "Use lowest effective doses, monitor INR closely",
				Monitoring: "INR every 1-2 weeks, signs of bleeding",
			},
			{A: "warfarin", B: "ibuprofen", Severity: domain.SeverityModerate, Effect: "Increased bleeding risk"},
			{
				A: "warfarin", B: "amiodarone", Severity: domain.SeverityMajor,
				Effect:     "Increased warfarin effect",
				Mechanism:  "Amiodarone inhibits warfarin metabolism",
				Management: "Reduce warfarin dose by 30-50%",
				Monitoring: "INR weekly for first month",
			},
			{A: "warfarin", B: "fluconazole", Severity: domain.SeverityMajor, Effect: "Increased warfarin effect"},
			{A: "warfarin", B: "nsaid", Severity: domain.SeverityModerate, Effect: "Increased bleeding risk"},
			{
				A: "lisinopril", B: "potassium supplements", Severity: domain.SeverityMajor,
				Effect:     "Hyperkalemia",
				Mechanism:  "ACE inhibitors reduce potassium excretion",
				Management: "Avoid potassium supplements unless hypokalemic",
				Monitoring: "Serum potassium levels",
			},
			{A: "lisinopril", B: "spironolactone", Severity: domain.SeverityMajor, Effect: "Hyperkalemia, renal impairment"},
			{A: "lisinopril", B: "ibuprofen", Severity: domain.SeverityModerate, Effect: "Reduced antihypertensive effect"},
			{A: "ace inhibitor", B: "potassium supplements", Severity: domain.SeverityMajor, Effect: "Hyperkalemia"},
			{A: "ace inhibitor", B: "nsaid", Severity: domain.SeverityModerate, Effect: "Reduced antihypertensive effect, acute kidney injury"},
			{
				A: "metoprolol", B: "verapamil", Severity: domain.SeverityMajor,
				Effect:     "Bradycardia, heart block",
				Mechanism:  "Additive negative chronotropic and inotropic effects",
				Management: "Avoid combination or use with extreme caution",
				Monitoring: "Heart rate, blood pressure, ECG",
			},
			{A: "metoprolol", B: "diltiazem", Severity: domain.SeverityModerate, Effect: "Bradycardia"},
			{A: "metoprolol", B: "amiodarone", Severity: domain.SeverityModerate, Effect: "Bradycardia"},
			{A: "amoxicillin", B: "warfarin", Severity: domain.SeverityModerate, Effect: "May alter warfarin effect"},
			{A: "amoxicillin", B: "oral contraceptives", Severity: domain.SeverityMinor, Effect: "Possible reduced contraceptive efficacy"},
			{A: "benzodiazepine", B: "opioid", Severity: domain.SeverityMajor, Effect: "Respiratory depression"},
		},

		DiseaseContraindications: []DiseaseRule{
			{Condition: "heart failure", Drugs: []string{"ibuprofen", "naproxen", "pioglitazone"}},
			{Condition: "kidney disease", Drugs: []string{"ibuprofen", "naproxen", "lisinopril"}},
			{Condition: "liver disease", Drugs: []string{"acetaminophen", "ibuprofen", "methotrexate"}},
			{Condition: "asthma", Drugs: []string{"aspirin", "ibuprofen", "beta blocker"}},
			{Condition: "diabetes", Drugs: []string{"thiazide diuretic", "beta blocker"}},
			{Condition: "gout", Drugs: []string{"aspirin", "niacin", "thiazide diuretic"}},
		},

		InteractionAgeWarnings: []AgeWarningRule{
			{
				Drugs:    []string{"tetracycline"},
				MaxAge:   8,
				Severity: domain.SeverityMajor,
				Message:  "Contraindicated in children under 8 years (teeth discoloration)",
				Unsafe:   true,
			},
			{
				Drugs:    []string{"fluoroquinolone"},
				MaxAge:   18,
				Severity: domain.SeverityMajor,
				Message:  "Not recommended in children (cartilage damage risk)",
				Unsafe:   true,
			},
			{
				Drugs:    []string{"amitriptyline", "diphenhydramine"},
				MinAge:   65,
				Severity: domain.SeverityModerate,
				Message:  "Strong anticholinergic effects may cause confusion in elderly",
			},
		},

		Pregnancy: []PregnancyRule{
			{Drug: "warfarin", Category: "X", Message: "Category X - Contraindicated in pregnancy", Severity: domain.SeverityMajor},
			{Drug: "statin", Category: "X", Message: "Category X - Contraindicated in pregnancy", Severity: domain.SeverityMajor},
			{Drug: "lisinopril", Category: "D", Message: "Category D - Avoid in pregnancy, fetal renal toxicity", Severity: domain.SeverityMajor},
			{Drug: "tetracycline", Category: "D", Message: "Category D - Avoid in pregnancy, fetal tooth discoloration", Severity: domain.SeverityMajor},
			{Drug: "metoprolol", Category: "C", Message: "Category C - Use with caution in pregnancy", Severity: domain.SeverityModerate},
			{Drug: "ibuprofen", Category: "C", Message: "Category C - Use with caution, avoid in third trimester", Severity: domain.SeverityModerate},
		},

		Alternatives: map[string][]string{
			"warfarin":      {"apixaban", "rivaroxaban", "dabigatran"},
			"ibuprofen":     {"acetaminophen", "topical diclofenac"},
			"aspirin":       {"acetaminophen", "clopidogrel"},
			"metoprolol":    {"atenolol", "carvedilol"},
			"lisinopril":    {"losartan", "amlodipine"},
			"amoxicillin":   {"azithromycin", "doxycycline"},
			"tetracycline":  {"amoxicillin", "azithromycin"},
			"ciprofloxacin": {"amoxicillin-clavulanate", "azithromycin"},
		},

		Severity: SeverityRules{
			Version: "1",
			Critical: []string{
				"anaphylaxis", "angioedema", "severe bleeding", "cardiac arrest",
				"seizure", "coma", "respiratory distress", "severe hypotension",
			},
			Tiers: []TierRule{
				{Severity: domain.SeverityLifeThreatening, Keywords: []string{"life-threatening", "life threatening", "fatal", "death", "cardiac arrest", "anaphylactic shock"}},
				{Severity: domain.SeveritySevere, Keywords: []string{"severe", "intense", "unbearable", "hospitalization", "emergency", "critical"}},
				{Severity: domain.SeverityModerate, Keywords: []string{"moderate", "significant", "bothersome", "interfering", "limiting"}},
				{Severity: domain.SeverityMild, Keywords: []string{"mild", "slight", "minimal", "tolerable", "manageable"}},
			},
			Escalations: []EscalationRule{
				{Condition: "heart disease", Symptoms: []string{"chest pain"}, Severity: domain.SeverityLifeThreatening},
				{Condition: "diabetes", Symptoms: []string{"hypoglycemia", "hyperglycemia"}, Severity: domain.SeverityLifeThreatening},
				{Condition: "asthma", Symptoms: []string{"breathing difficulty", "difficulty breathing", "shortness of breath"}, Severity: domain.SeverityLifeThreatening},
			},
		},

		RiskPhrases: []PhraseRule{
			{Category: "contraindication", Weight: 3.0, Phrases: []string{"avoid", "contraindicated", "not recommended"}},
			{Category: "beers_criteria", Weight: 2.5, Phrases: []string{"beers criteria"}},
			{Category: "organ_condition", Weight: 2.0, Phrases: []string{"heart failure", "kidney disease", "liver disease", "renal failure", "liver failure", "hepatic failure"}},
			{Category: "high_dose", Weight: 1.5, Phrases: []string{"high dose", "maximum dose", "overdose", "too high", "exceeds maximum"}},
			{Category: "interaction", Weight: 1.5, Phrases: []string{"interaction"}},
			{Category: "monitoring", Weight: 1.0, Phrases: []string{"monitor", "watch", "observe"}},
			{Category: "caution", Weight: 0.5, Phrases: []string{"caution", "careful", "aware"}},
		},
	}
}
