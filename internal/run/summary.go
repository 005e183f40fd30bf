package run

import "github.com/graphistry/agentbench/internal/harness"

// Bucket aggregates rows sharing one grouping key. The raw sample
// lists are kept only while accumulating and dropped at finalize.
type Bucket struct {
	Harness       string `json:"harness,omitempty"`
	Model         string `json:"model,omitempty"`
	SkillsMode    string `json:"skills_mode,omitempty"`
	EvalIntent    string `json:"eval_intent,omitempty"`
	GradingMode   string `json:"grading_mode,omitempty"`
	GradingSource string `json:"grading_source,omitempty"`

	Total         int     `json:"total"`
	Passed        int     `json:"passed"`
	HarnessOK     int     `json:"harness_ok"`
	PassRate      float64 `json:"pass_rate"`
	HarnessOKRate float64 `json:"harness_ok_rate"`
	AvgScore      float64 `json:"avg_score"`
	AvgLatencyMS  int64   `json:"avg_latency_ms"`

	scoreSum   float64
	latencySum int64
}

func (b *Bucket) add(row Row) {
	b.Total++
	if row.Pass {
		b.Passed++
	}
	if row.HarnessOK {
		b.HarnessOK++
	}
	b.scoreSum += row.Score
	b.latencySum += row.LatencyMS
}

func (b *Bucket) finalize() {
	if b.Total == 0 {
		return
	}
	total := float64(b.Total)
	b.PassRate = float64(b.Passed) / total
	b.HarnessOKRate = float64(b.HarnessOK) / total
	b.AvgScore = b.scoreSum / total
	b.AvgLatencyMS = b.latencySum / int64(b.Total)
}

// Summary is the run-level aggregate, recomputed from scratch over the
// full row list.
type Summary struct {
	TotalRows       int     `json:"total_rows"`
	PassedRows      int     `json:"passed_rows"`
	OverallPassRate float64 `json:"overall_pass_rate"`
	HarnessOKRows   int     `json:"harness_ok_rows"`
	HarnessOKRate   float64 `json:"harness_ok_rate"`

	ByHarness             map[string]*Bucket `json:"by_harness"`
	ByHarnessAndModel     map[string]*Bucket `json:"by_harness_and_model"`
	BySkillsMode          map[string]*Bucket `json:"by_skills_mode"`
	ByHarnessAndMode      map[string]*Bucket `json:"by_harness_and_mode"`
	ByHarnessModelAndMode map[string]*Bucket `json:"by_harness_model_and_mode"`
	ByEvalIntent          map[string]*Bucket `json:"by_eval_intent"`
	ByGradingMode         map[string]*Bucket `json:"by_grading_mode"`
	ByGradingSource       map[string]*Bucket `json:"by_grading_source"`
}

func bucketFor(buckets map[string]*Bucket, key string, init func(*Bucket)) *Bucket {
	b, ok := buckets[key]
	if !ok {
		b = &Bucket{}
		if init != nil {
			init(b)
		}
		buckets[key] = b
	}
	return b
}

// Summarize builds the aggregate for a finished run. Rows missing an
// eval intent count under "unspecified"; a missing grading mode or
// source counts as "deterministic".
func Summarize(rows []Row) *Summary {
	s := &Summary{
		ByHarness:             map[string]*Bucket{},
		ByHarnessAndModel:     map[string]*Bucket{},
		BySkillsMode:          map[string]*Bucket{},
		ByHarnessAndMode:      map[string]*Bucket{},
		ByHarnessModelAndMode: map[string]*Bucket{},
		ByEvalIntent:          map[string]*Bucket{},
		ByGradingMode:         map[string]*Bucket{},
		ByGradingSource:       map[string]*Bucket{},
	}

	for _, row := range rows {
		model := row.Model
		if model == "" {
			model = "default"
		}
		intent := row.EvalIntent
		if intent == "" {
			intent = "unspecified"
		}
		gradingMode := row.GradingMode
		if gradingMode == "" {
			gradingMode = "deterministic"
		}
		gradingSource := row.GradingSource
		if gradingSource == "" {
			gradingSource = "deterministic"
		}

		variantKey := harness.Variant{Harness: row.Harness, Model: row.Model}.Key()

		bucketFor(s.ByHarness, row.Harness, nil).add(row)
		bucketFor(s.BySkillsMode, row.SkillsMode, nil).add(row)
		bucketFor(s.ByEvalIntent, intent, func(b *Bucket) {
			b.EvalIntent = intent
		}).add(row)
		bucketFor(s.ByGradingMode, gradingMode, func(b *Bucket) {
			b.GradingMode = gradingMode
		}).add(row)
		bucketFor(s.ByGradingSource, gradingSource, func(b *Bucket) {
			b.GradingSource = gradingSource
		}).add(row)
		bucketFor(s.ByHarnessAndModel, variantKey, func(b *Bucket) {
			b.Harness = row.Harness
			b.Model = model
		}).add(row)
		bucketFor(s.ByHarnessAndMode, row.Harness+"::"+row.SkillsMode, func(b *Bucket) {
			b.Harness = row.Harness
			b.SkillsMode = row.SkillsMode
		}).add(row)
		bucketFor(s.ByHarnessModelAndMode, variantKey+"::"+row.SkillsMode, func(b *Bucket) {
			b.Harness = row.Harness
			b.Model = model
			b.SkillsMode = row.SkillsMode
		}).add(row)

		s.TotalRows++
		if row.Pass {
			s.PassedRows++
		}
		if row.HarnessOK {
			s.HarnessOKRows++
		}
	}

	for _, buckets := range []map[string]*Bucket{
		s.ByHarness, s.ByHarnessAndModel, s.BySkillsMode, s.ByHarnessAndMode,
		s.ByHarnessModelAndMode, s.ByEvalIntent, s.ByGradingMode, s.ByGradingSource,
	} {
		for _, b := range buckets {
			b.finalize()
		}
	}

	if s.TotalRows > 0 {
		s.OverallPassRate = float64(s.PassedRows) / float64(s.TotalRows)
		s.HarnessOKRate = float64(s.HarnessOKRows) / float64(s.TotalRows)
	}
	return s
}
