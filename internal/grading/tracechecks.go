package grading

import (
	"regexp"
	"strings"

	"github.com/graphistry/agentbench/internal/journey"
	"github.com/graphistry/agentbench/internal/transcript"
)

// TraceBreakdown groups trace check outcomes by check kind.
type TraceBreakdown struct {
	MustCommandRegex       []CheckEntry `json:"must_command_regex"`
	MustNotCommandRegex    []CheckEntry `json:"must_not_command_regex"`
	MustDomainUsed         []CheckEntry `json:"must_domain_used"`
	MustNotDomainUsed      []CheckEntry `json:"must_not_domain_used"`
	MaxEmptyOpenPageEvents []CheckEntry `json:"max_empty_open_page_events"`
}

// TraceResult is the trace grader's verdict.
type TraceResult struct {
	Grade
	Breakdown TraceBreakdown
}

// GradeTrace asserts trace checks against extracted features. Command
// patterns match case-insensitively against the joined command text;
// domain checks are case-insensitive substring matches against the
// visited-domain set. A spec with no checks passes automatically with
// score 1.0.
func GradeTrace(spec journey.TraceCheckSpec, features transcript.Features) TraceResult {
	var b TraceBreakdown
	total, passed := 0, 0

	record := func(list *[]CheckEntry, entry CheckEntry) {
		total++
		if entry.OK {
			passed++
		}
		*list = append(*list, entry)
	}

	commandsJoined := strings.Join(features.Commands, "\n")
	observedDomains := make([]any, 0, len(features.DomainsUsed))
	for _, d := range features.DomainsUsed {
		observedDomains = append(observedDomains, d)
	}

	for _, pattern := range spec.MustCommandRegex {
		entry := CheckEntry{Value: pattern}
		if re, err := regexp.Compile("(?i)" + pattern); err != nil {
			entry.Error = err.Error()
		} else {
			entry.OK = re.MatchString(commandsJoined)
		}
		record(&b.MustCommandRegex, entry)
	}
	for _, pattern := range spec.MustNotCommandRegex {
		entry := CheckEntry{Value: pattern}
		if re, err := regexp.Compile("(?i)" + pattern); err != nil {
			entry.Error = err.Error()
		} else {
			entry.OK = !re.MatchString(commandsJoined)
		}
		record(&b.MustNotCommandRegex, entry)
	}
	for _, domain := range spec.MustDomainUsed {
		record(&b.MustDomainUsed, CheckEntry{
			Value:    domain,
			Observed: observedDomains,
			OK:       domainUsed(features.DomainsUsed, domain),
		})
	}
	for _, domain := range spec.MustNotDomainUsed {
		record(&b.MustNotDomainUsed, CheckEntry{
			Value:    domain,
			Observed: observedDomains,
			OK:       !domainUsed(features.DomainsUsed, domain),
		})
	}
	if spec.MaxEmptyOpenPageEvents != nil {
		maxAllowed := *spec.MaxEmptyOpenPageEvents
		actual := features.OpenPageEmptyCount
		record(&b.MaxEmptyOpenPageEvents, CheckEntry{
			Max:    &maxAllowed,
			Actual: &actual,
			OK:     actual <= maxAllowed,
		})
	}

	if total == 0 {
		return TraceResult{Grade: Grade{Pass: true, Score: 1.0}, Breakdown: b}
	}
	return TraceResult{
		Grade: Grade{
			Pass:  passed == total,
			Score: float64(passed) / float64(total),
		},
		Breakdown: b,
	}
}

func domainUsed(domains []string, wanted string) bool {
	wanted = strings.ToLower(wanted)
	for _, d := range domains {
		if strings.Contains(d, wanted) {
			return true
		}
	}
	return false
}
