// ABOUTME: Closed persona field taxonomy with per-field kind and category
// ABOUTME: Every known field maps to exactly one FieldKind and one Category
package models

import (
	"fmt"
	"sort"
)

// Field identifies one attribute of a client persona, e.g. "goals.primary"
type Field string

// FieldKind selects the merge policy applied to a field
type FieldKind uint8

const (
	// KindScalar holds a single value replaced only by strictly higher confidence
	KindScalar FieldKind = iota + 1
	// KindSet holds an unordered collection of strings merged by union
	KindSet
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSet:
		return "set"
	default:
		return fmt.Sprintf("FieldKind(%d)", uint8(k))
	}
}

// Category groups fields for display and milestone analysis
type Category string

const (
	CategoryDemographics Category = "demographics"
	CategoryGoals        Category = "goals"
	CategoryChallenges   Category = "challenges"
	CategoryPersonality  Category = "personality"
	CategoryPatterns     Category = "patterns"
	CategoryProgress     Category = "progress"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryDemographics,
	CategoryGoals,
	CategoryChallenges,
	CategoryPersonality,
	CategoryPatterns,
	CategoryProgress,
}

const (
	FieldAgeRange      Field = "demographics.age_range"
	FieldOccupation    Field = "demographics.occupation"
	FieldLocation      Field = "demographics.location"
	FieldLifeStage     Field = "demographics.life_stage"
	FieldIndustry      Field = "demographics.industry"
	FieldGoalsPrimary  Field = "goals.primary"
	FieldGoalsSecond   Field = "goals.secondary"
	FieldMotivations   Field = "goals.motivations"
	FieldGoalTimeline  Field = "goals.timeline"
	FieldObstacles     Field = "challenges.obstacles"
	FieldFears         Field = "challenges.fears"
	FieldBeliefs       Field = "challenges.limiting_beliefs"
	FieldValues        Field = "personality.values"
	FieldTraits        Field = "personality.traits"
	FieldCommStyle     Field = "personality.communication_style"
	FieldLearningStyle Field = "personality.learning_style"
	FieldStrengths     Field = "patterns.strengths"
	FieldBehaviors     Field = "patterns.behaviors"
	FieldTriggers      Field = "patterns.triggers"
	FieldCoping        Field = "patterns.coping_strategies"
	FieldAchievements  Field = "progress.achievements"
	FieldBreakthroughs Field = "progress.breakthroughs"
	FieldCommitments   Field = "progress.commitments"
	FieldGrowthAreas   Field = "progress.growth_areas"
)

type fieldSpec struct {
	kind     FieldKind
	category Category
}

// taxonomy is the single source of truth for Field -> (Kind, Category)
var taxonomy = map[Field]fieldSpec{
	FieldAgeRange:      {KindScalar, CategoryDemographics},
	FieldOccupation:    {KindScalar, CategoryDemographics},
	FieldLocation:      {KindScalar, CategoryDemographics},
	FieldLifeStage:     {KindScalar, CategoryDemographics},
	FieldIndustry:      {KindScalar, CategoryDemographics},
	FieldGoalsPrimary:  {KindSet, CategoryGoals},
	FieldGoalsSecond:   {KindSet, CategoryGoals},
	FieldMotivations:   {KindSet, CategoryGoals},
	FieldGoalTimeline:  {KindScalar, CategoryGoals},
	FieldObstacles:     {KindSet, CategoryChallenges},
	FieldFears:         {KindSet, CategoryChallenges},
	FieldBeliefs:       {KindSet, CategoryChallenges},
	FieldValues:        {KindSet, CategoryPersonality},
	FieldTraits:        {KindSet, CategoryPersonality},
	FieldCommStyle:     {KindScalar, CategoryPersonality},
	FieldLearningStyle: {KindScalar, CategoryPersonality},
	FieldStrengths:     {KindSet, CategoryPatterns},
	FieldBehaviors:     {KindSet, CategoryPatterns},
	FieldTriggers:      {KindSet, CategoryPatterns},
	FieldCoping:        {KindSet, CategoryPatterns},
	FieldAchievements:  {KindSet, CategoryProgress},
	FieldBreakthroughs: {KindSet, CategoryProgress},
	FieldCommitments:   {KindSet, CategoryProgress},
	FieldGrowthAreas:   {KindSet, CategoryProgress},
}

// KeyFields always make a milestone period significant
var KeyFields = map[Field]bool{
	FieldGoalsPrimary:  true,
	FieldAchievements:  true,
	FieldBreakthroughs: true,
}

func init() {
	if err := validateTaxonomy(taxonomy); err != nil {
		panic(err)
	}
}

// validateTaxonomy rejects a table with an unset kind or unknown category.
func validateTaxonomy(t map[Field]fieldSpec) error {
	known := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		known[c] = true
	}
	for f, entry := range t {
		if entry.kind != KindScalar && entry.kind != KindSet {
			return &TaxonomyError{Field: f, Reason: "no field kind"}
		}
		if !known[entry.category] {
			return &TaxonomyError{Field: f, Reason: "no category"}
		}
	}
	for f := range KeyFields {
		if _, ok := t[f]; !ok {
			return &TaxonomyError{Field: f, Reason: "key field outside taxonomy"}
		}
	}
	return nil
}

// IsKnown reports whether the field belongs to the taxonomy
func (f Field) IsKnown() bool {
	_, ok := taxonomy[f]
	return ok
}

// Kind returns the field's merge kind
func (f Field) Kind() (FieldKind, error) {
	entry, ok := taxonomy[f]
	if !ok {
		return 0, &TaxonomyError{Field: f, Reason: "no field kind"}
	}
	return entry.kind, nil
}

// Category returns the field's category. A miss means the taxonomy and the
// stored data disagree, which callers must treat as fatal.
func (f Field) Category() (Category, error) {
	entry, ok := taxonomy[f]
	if !ok {
		return "", &TaxonomyError{Field: f, Reason: "no category"}
	}
	return entry.category, nil
}

// Fields returns every known field sorted by category order, then name
func Fields() []Field {
	order := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		order[c] = i
	}
	fields := make([]Field, 0, len(taxonomy))
	for f := range taxonomy {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		ci, cj := order[taxonomy[fields[i]].category], order[taxonomy[fields[j]].category]
		if ci != cj {
			return ci < cj
		}
		return fields[i] < fields[j]
	})
	return fields
}
