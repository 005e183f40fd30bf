package grading

// Grading modes.
const (
	ModeDeterministic = "deterministic"
	ModeOracle        = "oracle"
	ModeHybrid        = "hybrid"
)

// Grading sources recorded on rows and aggregated in the summary.
const (
	SourceDeterministic         = "deterministic"
	SourceDeterministicTrace    = "deterministic+trace"
	SourceDeterministicFallback = "deterministic_fallback"
	SourceOracle                = "oracle"
	SourceOracleStrictError     = "oracle_strict_error"
	SourceHybrid                = "hybrid"
	SourceHybridStrictError     = "hybrid_strict_error"
)

// HybridDetail records how a hybrid verdict was assembled.
type HybridDetail struct {
	Rule               string  `json:"rule"`
	DeterministicPass  bool    `json:"deterministic_pass"`
	OraclePass         bool    `json:"oracle_pass"`
	DeterministicScore float64 `json:"deterministic_score"`
	OracleScore        float64 `json:"oracle_score"`
}

// Combined is the final per-row verdict plus its provenance.
type Combined struct {
	Pass   bool
	Score  float64
	Source string
	// Hybrid is set when both graders contributed to a hybrid verdict.
	Hybrid *HybridDetail
	// OracleError is set when the oracle was requested but failed.
	OracleError string
}

// Combine applies the combination policy for the active grading mode.
//
// The deterministic+trace baseline is always computed: pass requires
// both graders, and the score averages them only when trace checks
// exist. Oracle mode replaces the baseline with the judge's verdict
// when the judge succeeded; hybrid ANDs the passes and averages the
// scores. When the oracle was requested but failed, strict mode fails
// the row closed, otherwise the baseline stands as a fallback.
func Combine(mode string, strict bool, det DetResult, trace TraceResult, hasTraceChecks, oracleRequested bool, oracle OracleResult) Combined {
	out := Combined{
		Pass:   det.Pass && trace.Pass,
		Score:  det.Score,
		Source: SourceDeterministic,
	}
	if hasTraceChecks {
		out.Score = (det.Score + trace.Score) / 2.0
		out.Source = SourceDeterministicTrace
	}

	switch mode {
	case ModeOracle:
		if !oracleRequested {
			return out
		}
		if oracle.OK {
			return Combined{Pass: oracle.Pass, Score: oracle.Score, Source: SourceOracle}
		}
		out.OracleError = oracleErrorString(oracle)
		if strict {
			out.Pass = false
			out.Score = 0
			out.Source = SourceOracleStrictError
		} else {
			out.Source = SourceDeterministicFallback
		}

	case ModeHybrid:
		if !oracleRequested {
			return out
		}
		if oracle.OK {
			return Combined{
				Pass:   det.Pass && oracle.Pass,
				Score:  clamp01((det.Score + oracle.Score) / 2.0),
				Source: SourceHybrid,
				Hybrid: &HybridDetail{
					Rule:               "deterministic_and_oracle",
					DeterministicPass:  det.Pass,
					OraclePass:         oracle.Pass,
					DeterministicScore: det.Score,
					OracleScore:        oracle.Score,
				},
			}
		}
		out.OracleError = oracleErrorString(oracle)
		if strict {
			out.Pass = false
			out.Score = 0
			out.Source = SourceHybridStrictError
		} else {
			out.Source = SourceDeterministicFallback
		}
	}
	return out
}

func oracleErrorString(oracle OracleResult) string {
	if oracle.Error != "" {
		return oracle.Error
	}
	return "oracle_unavailable"
}
