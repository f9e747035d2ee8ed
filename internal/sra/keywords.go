package sra

import (
	"regexp"

	"github.com/mindwell-health/assessment-engine/internal/models"
)

// categoryOrder fixes the scan order so extraction output is deterministic.
var categoryOrder = []models.Category{
	models.CategoryMood,
	models.CategoryAnxiety,
	models.CategorySleep,
	models.CategoryAppetite,
	models.CategoryEnergy,
	models.CategoryConcentration,
	models.CategorySuicidal,
	models.CategorySelfHarm,
	models.CategoryPanic,
	models.CategoryOCD,
	models.CategoryTrauma,
	models.CategoryADHD,
}

var categoryKeywords = map[models.Category][]string{
	models.CategoryMood: {
		"sad", "depressed", "down", "hopeless", "empty", "guilty", "worthless",
		"irritable", "angry", "moody", "euphoric", "manic", "high", "elated",
	},
	models.CategoryAnxiety: {
		"anxious", "worried", "nervous", "fear", "panic", "afraid", "scared",
		"restless", "on edge", "tense", "apprehensive",
	},
	models.CategorySleep: {
		"insomnia", "sleep", "trouble sleeping", "can't sleep", "wake up",
		"sleeping too much", "hypersomnia", "nightmare",
	},
	models.CategoryAppetite: {
		"appetite", "eating", "weight", "hungry", "not hungry", "food",
		"lost weight", "gained weight",
	},
	models.CategoryEnergy: {
		"tired", "fatigue", "fatigued", "exhausted", "low energy", "lethargic",
		"sluggish", "no energy", "energetic", "hyperactive", "constantly tired",
		"feel tired",
	},
	models.CategoryConcentration: {
		"concentrate", "focus", "attention", "distracted", "forgetful",
		"memory", "remember", "brain fog",
	},
	models.CategorySuicidal: {
		"suicide", "kill myself", "end my life", "want to die", "not worth living",
	},
	models.CategorySelfHarm: {
		"hurt myself", "cut", "burn", "self harm", "self-harm",
	},
	models.CategoryPanic: {
		"panic attack", "panic", "heart racing", "chest pain",
		"short of breath", "dizzy", "sweating", "trembling",
	},
	models.CategoryOCD: {
		"obsession", "compulsion", "ritual", "repetitive", "checking",
		"cleaning", "counting", "intrusive thought",
	},
	models.CategoryTrauma: {
		"flashback", "nightmare", "trauma", "ptsd", "triggered", "reliving",
		"avoid", "numb", "hypervigilant",
	},
	models.CategoryADHD: {
		"attention", "hyperactive", "impulsive", "distracted", "can't focus",
		"fidget", "restless",
	},
}

// categoryDisplayNames are the symptom names recorded for rule-based matches.
var categoryDisplayNames = map[models.Category]string{
	models.CategoryMood:          "Mood symptoms",
	models.CategoryAnxiety:       "Anxiety symptoms",
	models.CategorySleep:         "Sleep problems",
	models.CategoryAppetite:      "Appetite changes",
	models.CategoryEnergy:        "Energy problems",
	models.CategoryConcentration: "Concentration problems",
	models.CategorySuicidal:      "Suicidal thoughts",
	models.CategorySelfHarm:      "Self-harm behavior",
	models.CategoryPanic:         "Panic attacks",
	models.CategoryOCD:           "OCD symptoms",
	models.CategoryTrauma:        "Trauma symptoms",
	models.CategoryADHD:          "ADHD symptoms",
}

// Severity, frequency, and duration ladders scanned in order; the first
// matching rung wins.
var severityLadder = []struct {
	level    models.Severity
	keywords []string
}{
	{models.SeveritySevere, []string{"extreme", "severe", "very bad", "terrible", "awful"}},
	{models.SeverityModerate, []string{"moderate", "somewhat", "quite", "pretty"}},
	{models.SeverityMild, []string{"mild", "slight", "a little", "some"}},
}

var frequencyLadder = []struct {
	level    models.Frequency
	keywords []string
}{
	{models.FrequencyDaily, []string{"daily", "every day", "always", "constantly"}},
	{models.FrequencyWeekly, []string{"weekly", "few times", "several times"}},
	{models.FrequencyOccasional, []string{"occasional", "sometimes", "once in a while"}},
	{models.FrequencyRare, []string{"rare", "rarely", "seldom"}},
}

var (
	durationYearsRe  = regexp.MustCompile(`\d+\s*years?`)
	durationMonthsRe = regexp.MustCompile(`\d+\s*months?`)
	durationWeeksRe  = regexp.MustCompile(`\d+\s*weeks?`)
)

// ParseCategory maps a free-form category label to the enum, defaulting to other.
func ParseCategory(label string) models.Category {
	for _, category := range categoryOrder {
		if label == string(category) {
			return category
		}
	}
	return models.CategoryOther
}
