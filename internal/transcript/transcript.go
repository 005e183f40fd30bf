// Package transcript mines behavioral features out of raw harness
// transcripts for trace-level grading.
//
// A raw transcript is a JSONL stream of agent events. Only completed
// tool-invocation events matter here: shell/command executions, web
// searches, and page fetches. Everything else, including unparseable
// lines, is ignored; a missing or empty transcript yields zero-valued
// features rather than an error.
package transcript

import (
	"encoding/json"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
)

var gitCloneRE = regexp.MustCompile(`\bgit\s+clone\b`)

// Features summarizes what the agent actually did during one
// invocation.
type Features struct {
	Commands           []string `json:"commands"`
	DomainsUsed        []string `json:"domains_used"`
	GitCloneCount      int      `json:"git_clone_count"`
	WebSearchCount     int      `json:"web_search_count"`
	OpenPageCount      int      `json:"open_page_count"`
	OpenPageEmptyCount int      `json:"open_page_empty_count"`
}

type rawEvent struct {
	Type string `json:"type"`
	Item struct {
		Type      string          `json:"type"`
		Command   string          `json:"command"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"item"`
}

// ExtractFeatures parses the transcript at rawRef. Any read or parse
// problem degrades to the features collected so far.
func ExtractFeatures(rawRef string) Features {
	features := Features{Commands: []string{}, DomainsUsed: []string{}}
	if rawRef == "" {
		return features
	}
	data, err := os.ReadFile(rawRef)
	if err != nil {
		return features
	}

	domains := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event rawEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if event.Type != "item.completed" {
			continue
		}

		switch event.Item.Type {
		case "command_execution":
			features.recordCommand(event.Item.Command)
		case "function_call":
			args := decodeArguments(event.Item.Arguments)
			switch event.Item.Name {
			case "shell":
				cmd, _ := args["command"].(string)
				if cmd == "" {
					cmd, _ = args["cmd"].(string)
				}
				features.recordCommand(cmd)
			case "web_search", "webSearch":
				features.WebSearchCount++
			case "open_page", "openPage", "web_fetch", "webFetch":
				features.OpenPageCount++
				rawURL, _ := args["url"].(string)
				if strings.TrimSpace(rawURL) == "" {
					features.OpenPageEmptyCount++
				} else if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
					domains[strings.ToLower(parsed.Host)] = true
				}
			}
		}
	}

	for domain := range domains {
		features.DomainsUsed = append(features.DomainsUsed, domain)
	}
	sort.Strings(features.DomainsUsed)
	return features
}

func (f *Features) recordCommand(cmd string) {
	if cmd == "" {
		return
	}
	f.Commands = append(f.Commands, cmd)
	if gitCloneRE.MatchString(cmd) {
		f.GitCloneCount++
	}
}

// decodeArguments tolerates arguments encoded either as a JSON string
// or as an inline object.
func decodeArguments(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}
