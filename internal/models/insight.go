// ABOUTME: SessionInsightRecord is the fully-defaulted per-session synthesis output
// ABOUTME: PartialInsight is the optional-field shape produced by upstream analyzers
package models

import "time"

// Neutral defaults used whenever no upstream source supplies a field
const (
	DefaultScore             = 5.0
	MinScore                 = 0.0
	MaxScore                 = 10.0
	DefaultEmotionalTone     = "neutral"
	DefaultSessionPhase      = "exploration"
	DefaultExecutiveSummary  = "Summary unavailable: automated analysis did not produce a usable result for this session."
	DefaultClientSummary     = "No client summary was generated for this session."
	DefaultCoachNotes        = "No coach notes were generated for this session."
	DefaultRecommendedFocus  = "Review the session transcript to choose a focus."
	DefaultNextSessionFocus  = "Continue from the topics raised in this session."
	DefaultInsightConfidence = 0.7
)

// TranscriptMetrics are computed deterministically from final transcript lines
type TranscriptMetrics struct {
	DurationSeconds float64        `json:"duration_seconds" yaml:"duration_seconds"`
	TotalWords      int            `json:"total_words" yaml:"total_words"`
	SpeakerWords    map[string]int `json:"speaker_words" yaml:"speaker_words"`
}

// SessionInsightRecord never has a missing field; see NewDefaultInsight
type SessionInsightRecord struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	ClientID  string `json:"client_id" yaml:"client_id"`

	OverallScore      float64 `json:"overall_score" yaml:"overall_score"`
	EngagementScore   float64 `json:"engagement_score" yaml:"engagement_score"`
	ClarityScore      float64 `json:"clarity_score" yaml:"clarity_score"`
	MomentumScore     float64 `json:"momentum_score" yaml:"momentum_score"`
	BreakthroughScore float64 `json:"breakthrough_score" yaml:"breakthrough_score"`

	EmotionalTone    string `json:"emotional_tone" yaml:"emotional_tone"`
	SessionPhase     string `json:"session_phase" yaml:"session_phase"`
	ExecutiveSummary string `json:"executive_summary" yaml:"executive_summary"`
	ClientSummary    string `json:"client_summary" yaml:"client_summary"`
	CoachNotes       string `json:"coach_notes" yaml:"coach_notes"`
	RecommendedFocus string `json:"recommended_focus" yaml:"recommended_focus"`
	NextSessionFocus string `json:"next_session_focus" yaml:"next_session_focus"`

	KeyInsights       []string `json:"key_insights" yaml:"key_insights"`
	Breakthroughs     []string `json:"breakthroughs" yaml:"breakthroughs"`
	ActionItems       []string `json:"action_items" yaml:"action_items"`
	Commitments       []string `json:"commitments" yaml:"commitments"`
	Goals             []string `json:"goals" yaml:"goals"`
	Challenges        []string `json:"challenges" yaml:"challenges"`
	Values            []string `json:"values" yaml:"values"`
	Strengths         []string `json:"strengths" yaml:"strengths"`
	BehaviorPatterns  []string `json:"behavior_patterns" yaml:"behavior_patterns"`
	Achievements      []string `json:"achievements" yaml:"achievements"`
	GrowthAreas       []string `json:"growth_areas" yaml:"growth_areas"`
	FollowUpQuestions []string `json:"follow_up_questions" yaml:"follow_up_questions"`
	Topics            []string `json:"topics" yaml:"topics"`

	Metrics   TranscriptMetrics `json:"metrics" yaml:"metrics"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
}

// NewDefaultInsight returns a record where every field holds its neutral default
func NewDefaultInsight(clientID, sessionID string) SessionInsightRecord {
	return SessionInsightRecord{
		SessionID: sessionID,
		ClientID:  clientID,

		OverallScore:      DefaultScore,
		EngagementScore:   DefaultScore,
		ClarityScore:      DefaultScore,
		MomentumScore:     DefaultScore,
		BreakthroughScore: DefaultScore,

		EmotionalTone:    DefaultEmotionalTone,
		SessionPhase:     DefaultSessionPhase,
		ExecutiveSummary: DefaultExecutiveSummary,
		ClientSummary:    DefaultClientSummary,
		CoachNotes:       DefaultCoachNotes,
		RecommendedFocus: DefaultRecommendedFocus,
		NextSessionFocus: DefaultNextSessionFocus,

		KeyInsights:       []string{},
		Breakthroughs:     []string{},
		ActionItems:       []string{},
		Commitments:       []string{},
		Goals:             []string{},
		Challenges:        []string{},
		Values:            []string{},
		Strengths:         []string{},
		BehaviorPatterns:  []string{},
		Achievements:      []string{},
		GrowthAreas:       []string{},
		FollowUpQuestions: []string{},
		Topics:            []string{},

		Metrics: TranscriptMetrics{SpeakerWords: map[string]int{}},
	}
}

// PartialInsight is what the real-time analyzer or the synthesis text may
// provide. A nil pointer or nil slice means the source did not supply the field.
type PartialInsight struct {
	OverallScore      *float64 `json:"overall_score,omitempty"`
	EngagementScore   *float64 `json:"engagement_score,omitempty"`
	ClarityScore      *float64 `json:"clarity_score,omitempty"`
	MomentumScore     *float64 `json:"momentum_score,omitempty"`
	BreakthroughScore *float64 `json:"breakthrough_score,omitempty"`

	EmotionalTone    *string `json:"emotional_tone,omitempty"`
	SessionPhase     *string `json:"session_phase,omitempty"`
	ExecutiveSummary *string `json:"executive_summary,omitempty"`
	ClientSummary    *string `json:"client_summary,omitempty"`
	CoachNotes       *string `json:"coach_notes,omitempty"`
	RecommendedFocus *string `json:"recommended_focus,omitempty"`
	NextSessionFocus *string `json:"next_session_focus,omitempty"`

	KeyInsights       []string `json:"key_insights,omitempty"`
	Breakthroughs     []string `json:"breakthroughs,omitempty"`
	ActionItems       []string `json:"action_items,omitempty"`
	Commitments       []string `json:"commitments,omitempty"`
	Goals             []string `json:"goals,omitempty"`
	Challenges        []string `json:"challenges,omitempty"`
	Values            []string `json:"values,omitempty"`
	Strengths         []string `json:"strengths,omitempty"`
	BehaviorPatterns  []string `json:"behavior_patterns,omitempty"`
	Achievements      []string `json:"achievements,omitempty"`
	GrowthAreas       []string `json:"growth_areas,omitempty"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
	Topics            []string `json:"topics,omitempty"`
}

// TranscriptEntry is one final transcript line; times are seconds from session start
type TranscriptEntry struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// StoredInsight pairs a record with the raw synthesis text kept for diagnostics
type StoredInsight struct {
	Record          SessionInsightRecord `json:"record" yaml:"record"`
	RawSynthesis    string               `json:"raw_synthesis,omitempty" yaml:"raw_synthesis,omitempty"`
	SynthesisParsed bool                 `json:"synthesis_parsed" yaml:"synthesis_parsed"`
}
